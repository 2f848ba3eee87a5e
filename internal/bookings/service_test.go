package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/storage/memory"
	"freight-service/internal/testfixture"
	"freight-service/pkg/logger"
)

type recordingHub struct {
	mu   sync.Mutex
	seen []domain.BookingStatus
}

func (h *recordingHub) BroadcastStatus(_ string, status domain.BookingStatus) {
	h.mu.Lock()
	h.seen = append(h.seen, status)
	h.mu.Unlock()
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	hub      *recordingHub
	customer domain.Party
	driver   domain.Party
	truck    *domain.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	hub := &recordingHub{}
	f := &fixture{
		svc:      NewService(store, events.NewLocal(), hub, logger.NewNop()),
		store:    store,
		hub:      hub,
		customer: testfixture.Verified(t, store, "Customer", domain.RoleCustomer),
		driver:   testfixture.Verified(t, store, "Driver", domain.RoleDriver),
	}
	f.truck = testfixture.Vehicle(t, store, f.driver, "V1")
	return f
}

func (f *fixture) ad(t *testing.T, id string, poster domain.Party, vehicle *domain.Vehicle, cost float64) *domain.Ad {
	t.Helper()
	ad := &domain.Ad{
		ID: id, Kind: poster.Role, Poster: poster, Vehicle: vehicle,
		StartPlace: "Tashkent", EndPlace: "Khiva",
		StartTime: testfixture.Day, EndTime: testfixture.Day.Add(20 * time.Hour),
		Cost: cost, Quantity: 1, CreatedAt: testfixture.Day,
	}
	if err := f.store.Ad().Create(context.Background(), ad); err != nil {
		t.Fatal(err)
	}
	return ad
}

func (f *fixture) bid(t *testing.T, id string, ad *domain.Ad, bidder domain.Party, vehicle *domain.Vehicle, cost float64) *domain.Bid {
	t.Helper()
	b := &domain.Bid{ID: id, AdID: ad.ID, AdKind: ad.Kind, Bidder: bidder, Vehicle: vehicle, Cost: cost, CreatedAt: testfixture.Day}
	if err := f.store.Bid().Create(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAcceptBidOnCustomerAd(t *testing.T) {
	f := newFixture(t)
	ad := f.ad(t, "ad-1", f.customer, nil, 100)
	bid := f.bid(t, "bid-1", ad, f.driver, f.truck, 80)

	b, err := f.svc.AcceptBid(context.Background(), testfixture.Principal(f.customer), ad.ID, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != domain.StatusAccepted || !b.CustomerAd {
		t.Fatalf("unexpected booking %+v", b.Booking)
	}
	if b.Driver.UserID != f.driver.UserID || b.Customer.UserID != f.customer.UserID {
		t.Fatalf("parties: driver %+v customer %+v", b.Driver, b.Customer)
	}
	if b.Vehicle == nil || b.Vehicle.ID != f.truck.ID || b.Price != 80 {
		t.Fatalf("bidder's vehicle and price must win: %+v %v", b.Vehicle, b.Price)
	}

	stored, err := f.store.Booking().GetByAd(context.Background(), ad.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Price != 80 || stored.Vehicle.ID != f.truck.ID {
		t.Fatalf("stored projection %+v", stored.Projection)
	}
	if len(f.hub.seen) != 1 || f.hub.seen[0] != domain.StatusAccepted {
		t.Fatalf("broadcasts = %v", f.hub.seen)
	}
}

func TestAcceptBidOnDriverAd(t *testing.T) {
	f := newFixture(t)
	ad := f.ad(t, "ad-2", f.driver, f.truck, 300)
	bid := f.bid(t, "bid-2", ad, f.customer, nil, 250)

	b, err := f.svc.AcceptBid(context.Background(), testfixture.Principal(f.driver), ad.ID, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.CustomerAd || b.Driver.UserID != f.driver.UserID || b.Customer.UserID != f.customer.UserID {
		t.Fatalf("unexpected booking %+v", b.Booking)
	}
	if b.Vehicle == nil || b.Vehicle.ID != f.truck.ID || b.Price != 300 {
		t.Fatalf("ad's vehicle and price must win: %+v %v", b.Vehicle, b.Price)
	}
}

func TestAcceptBidRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ad := f.ad(t, "ad-1", f.customer, nil, 100)
	other := f.ad(t, "ad-9", f.customer, nil, 100)
	bid := f.bid(t, "bid-1", ad, f.driver, f.truck, 80)
	foreign := f.bid(t, "bid-9", other, f.driver, f.truck, 80)

	if _, err := f.svc.AcceptBid(ctx, testfixture.Principal(f.driver), ad.ID, bid.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-poster: got %v", err)
	}
	if _, err := f.svc.AcceptBid(ctx, testfixture.Staff, ad.ID, bid.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("staff: got %v", err)
	}
	if _, err := f.svc.AcceptBid(ctx, testfixture.Principal(f.customer), ad.ID, foreign.ID); !errors.Is(err, domain.ErrInvalidBid) {
		t.Fatalf("foreign bid: got %v", err)
	}
	if _, err := f.svc.AcceptBid(ctx, testfixture.Principal(f.customer), ad.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing bid: got %v", err)
	}
	if _, err := f.svc.AcceptBid(ctx, testfixture.Principal(f.customer), "missing", bid.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing ad: got %v", err)
	}

	if _, err := f.svc.AcceptBid(ctx, testfixture.Principal(f.customer), ad.ID, bid.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AcceptBid(ctx, testfixture.Principal(f.customer), ad.ID, bid.ID); !errors.Is(err, domain.ErrAdClosed) {
		t.Fatalf("second accept: got %v", err)
	}
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ad := f.ad(t, "ad-1", f.customer, nil, 100)

	const n = 16
	bidIDs := make([]string, n)
	for i := range bidIDs {
		bidIDs[i] = f.bid(t, "bid-"+string(rune('a'+i)), ad, f.driver, f.truck, float64(50+i)).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.AcceptBid(context.Background(), testfixture.Principal(f.customer), ad.ID, bidIDs[i])
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, domain.ErrAdClosed):
			t.Fatalf("loser must see AdClosed, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d", wins)
	}

	bs, _ := f.store.Booking().ListByUser(context.Background(), f.customer.UserID)
	if len(bs) != 1 {
		t.Fatalf("bookings for ad = %d", len(bs))
	}
}

func (f *fixture) booked(t *testing.T) *BookingView {
	t.Helper()
	ad := f.ad(t, "ad-1", f.customer, nil, 100)
	bid := f.bid(t, "bid-1", ad, f.driver, f.truck, 80)
	b, err := f.svc.AcceptBid(context.Background(), testfixture.Principal(f.customer), ad.ID, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.booked(t)

	if _, err := f.svc.Advance(ctx, testfixture.Principal(f.customer), b.ID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("customer: got %v", err)
	}
	if _, err := f.svc.Advance(ctx, testfixture.Principal(f.driver), b.ID, domain.StatusFulfilled); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("skip: got %v", err)
	}
	if _, err := f.svc.Advance(ctx, testfixture.Principal(f.driver), b.ID, domain.StatusPending); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("regress: got %v", err)
	}

	got, err := f.svc.Advance(ctx, testfixture.Principal(f.driver), b.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusDispatched || got.StatusLabel != "Dispatched" {
		t.Fatalf("status = %s", got.Status)
	}
	if got, err = f.svc.Advance(ctx, testfixture.Staff, b.ID, domain.StatusFulfilled); err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFulfilled {
		t.Fatalf("status = %s", got.Status)
	}
	if _, err := f.svc.Advance(ctx, testfixture.Principal(f.driver), b.ID, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("past fulfilled: got %v", err)
	}

	want := []domain.BookingStatus{domain.StatusAccepted, domain.StatusDispatched, domain.StatusFulfilled}
	if len(f.hub.seen) != len(want) {
		t.Fatalf("broadcasts = %v", f.hub.seen)
	}
	for i := range want {
		if f.hub.seen[i] != want[i] {
			t.Fatalf("broadcasts = %v", f.hub.seen)
		}
	}
}

func TestRecordTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.booked(t)
	customer := testfixture.Principal(f.customer)

	for _, status := range []domain.BookingStatus{domain.StatusAccepted, domain.StatusDispatched} {
		if _, err := f.svc.RecordTransaction(ctx, customer, b.ID, 80); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("%s: got %v", status, err)
		}
		if _, err := f.svc.Advance(ctx, testfixture.Principal(f.driver), b.ID, ""); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := f.svc.RecordTransaction(ctx, testfixture.Principal(f.driver), b.ID, 80); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("driver: got %v", err)
	}
	for _, amount := range []float64{0, -5, 10.005, 1e10} {
		if _, err := f.svc.RecordTransaction(ctx, customer, b.ID, amount); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount %v: got %v", amount, err)
		}
	}

	if _, err := f.svc.RecordTransaction(ctx, customer, b.ID, 50.25); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RecordTransaction(ctx, testfixture.Staff, b.ID, 29.75); err != nil {
		t.Fatal(err)
	}

	ts, err := f.svc.ListTransactions(ctx, testfixture.Principal(f.driver), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 {
		t.Fatalf("transactions = %d", len(ts))
	}
	total := 0.0
	for _, tx := range ts {
		total += tx.Amount
	}
	if total != 80 {
		t.Fatalf("total = %v", total)
	}
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.booked(t)
	outsider := domain.Principal{UserID: "outsider"}

	if _, err := f.svc.Get(ctx, outsider, b.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("outsider: got %v", err)
	}
	if err := f.svc.Authorize(ctx, outsider, b.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("outsider feed: got %v", err)
	}
	for _, p := range []domain.Principal{testfixture.Principal(f.customer), testfixture.Principal(f.driver), testfixture.Staff} {
		if _, err := f.svc.Get(ctx, p, b.ID); err != nil {
			t.Fatalf("%s: %v", p.UserID, err)
		}
	}

	mine, err := f.svc.ListMine(ctx, f.driver.UserID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("mine = %d, %v", len(mine), err)
	}
	none, _ := f.svc.ListMine(ctx, "outsider")
	if len(none) != 0 {
		t.Fatalf("outsider bookings = %d", len(none))
	}
}
