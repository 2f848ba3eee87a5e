package bids

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/storage/memory"
	"freight-service/internal/testfixture"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
)

type fixture struct {
	svc      *Service
	store    *memory.Store
	bus      *events.Local
	customer domain.Party
	driver   domain.Party
	truck    *domain.Vehicle
	ad       *domain.Ad
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	bus := events.NewLocal()
	f := &fixture{
		svc:      NewService(store, bus, logger.NewNop()),
		store:    store,
		bus:      bus,
		customer: testfixture.Verified(t, store, "Customer", domain.RoleCustomer),
		driver:   testfixture.Verified(t, store, "Driver", domain.RoleDriver),
	}
	f.truck = testfixture.Vehicle(t, store, f.driver, "TR1")
	f.ad = &domain.Ad{
		ID: "ad-1", Kind: domain.RoleCustomer, Poster: f.customer,
		StartPlace: "Tashkent", EndPlace: "Fergana",
		StartTime: testfixture.Day, EndTime: testfixture.Day.Add(6 * time.Hour),
		Cost: 100, Quantity: 1, CreatedAt: testfixture.Day,
	}
	if err := store.Ad().Create(context.Background(), f.ad); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestPlaceOnCustomerAd(t *testing.T) {
	f := newFixture(t)
	placed := make(chan events.BidPlacedEvent, 1)
	f.bus.Subscribe(context.Background(), kafka.TopicBidPlaced, "test", func(b []byte) error {
		var ev events.BidPlacedEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			return err
		}
		placed <- ev
		return nil
	})

	bid, err := f.svc.Place(context.Background(), testfixture.Principal(f.driver), f.ad.ID,
		PlaceRequest{Role: "driver", Cost: 80, VehicleID: f.truck.ID})
	if err != nil {
		t.Fatal(err)
	}
	if bid.AdKind != domain.RoleCustomer || bid.Bidder != f.driver || bid.Vehicle.ID != f.truck.ID || bid.Cost != 80 {
		t.Fatalf("unexpected bid %+v", bid)
	}

	select {
	case ev := <-placed:
		if ev.BidID != bid.ID || ev.PosterUserID != f.customer.UserID || ev.BidderUserID != f.driver.UserID {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bid.placed not published")
	}
}

func TestPlaceRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Place(ctx, testfixture.Principal(f.customer), f.ad.ID, PlaceRequest{Role: "customer", Cost: 80})
	if !errors.Is(err, domain.ErrRoleMismatch) {
		t.Fatalf("same role: got %v", err)
	}

	// The poster holds a verified driver profile too.
	self := testfixture.Party(t, f.store, domain.User{ID: f.customer.UserID, FullName: f.customer.FullName}, domain.RoleDriver, domain.VerificationVerified)
	selfTruck := testfixture.Vehicle(t, f.store, self, "SELF1")
	_, err = f.svc.Place(ctx, testfixture.Principal(self), f.ad.ID, PlaceRequest{Role: "driver", Cost: 80, VehicleID: selfTruck.ID})
	if e, ok := domain.AsError(err); !ok || e.Code != domain.CodeForbidden || e.Field != "ad" {
		t.Fatalf("self-dealing: got %v", err)
	}

	pending := testfixture.Party(t, f.store, testfixture.User(t, f.store, "Pending"), domain.RoleDriver, domain.VerificationPending)
	_, err = f.svc.Place(ctx, testfixture.Principal(pending), f.ad.ID, PlaceRequest{Role: "driver", Cost: 80})
	if !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("pending bidder: got %v", err)
	}

	_, err = f.svc.Place(ctx, testfixture.Principal(f.driver), f.ad.ID, PlaceRequest{Role: "driver", Cost: 80})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("driver bid without vehicle: got %v", err)
	}
	_, err = f.svc.Place(ctx, testfixture.Principal(f.driver), f.ad.ID, PlaceRequest{Role: "driver", Cost: 80, VehicleID: selfTruck.ID})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign vehicle: got %v", err)
	}
	_, err = f.svc.Place(ctx, testfixture.Principal(f.driver), f.ad.ID, PlaceRequest{Role: "driver", Cost: 0, VehicleID: f.truck.ID})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("zero cost: got %v", err)
	}
	_, err = f.svc.Place(ctx, testfixture.Principal(f.driver), "missing", PlaceRequest{Role: "driver", Cost: 80, VehicleID: f.truck.ID})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing ad: got %v", err)
	}
}

func TestPlaceOnClosedAd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Place(ctx, testfixture.Principal(f.driver), f.ad.ID, PlaceRequest{Role: "driver", Cost: 80, VehicleID: f.truck.ID})
	if err != nil {
		t.Fatal(err)
	}
	ad, _ := f.store.Ad().GetByID(ctx, f.ad.ID)
	b, err := domain.NewBooking("bk-1", ad, first, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Booking().Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Place(ctx, testfixture.Principal(f.driver), f.ad.ID, PlaceRequest{Role: "driver", Cost: 70, VehicleID: f.truck.ID})
	if !errors.Is(err, domain.ErrAdClosed) {
		t.Fatalf("got %v", err)
	}
}

func TestCustomerBidOnDriverAd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := &domain.Ad{
		ID: "ad-2", Kind: domain.RoleDriver, Poster: f.driver, Vehicle: f.truck,
		StartPlace: "Andijan", EndPlace: "Tashkent",
		StartTime: testfixture.Day, EndTime: testfixture.Day.Add(5 * time.Hour),
		Cost: 300, Quantity: 2,
	}
	if err := f.store.Ad().Create(ctx, offer); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Place(ctx, testfixture.Principal(f.customer), offer.ID, PlaceRequest{Role: "c", Cost: 250, VehicleID: f.truck.ID})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("customer bid with vehicle: got %v", err)
	}
	bid, err := f.svc.Place(ctx, testfixture.Principal(f.customer), offer.ID, PlaceRequest{Role: "c", Cost: 250})
	if err != nil {
		t.Fatal(err)
	}
	if bid.Vehicle != nil || bid.Bidder.Role != domain.RoleCustomer {
		t.Fatalf("unexpected bid %+v", bid)
	}
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rival := testfixture.Verified(t, f.store, "Rival", domain.RoleDriver)
	rivalTruck := testfixture.Vehicle(t, f.store, rival, "RV1")

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Place(ctx, testfixture.Principal(f.driver), f.ad.ID, PlaceRequest{Role: "driver", Cost: 90 - float64(i), VehicleID: f.truck.ID}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Place(ctx, testfixture.Principal(rival), f.ad.ID, PlaceRequest{Role: "driver", Cost: 85, VehicleID: rivalTruck.ID}); err != nil {
		t.Fatal(err)
	}

	all, err := f.svc.ListForAd(ctx, testfixture.Principal(f.customer), f.ad.ID)
	if err != nil || len(all) != 3 {
		t.Fatalf("poster sees %d bids, err %v", len(all), err)
	}
	staffView, _ := f.svc.ListForAd(ctx, testfixture.Staff, f.ad.ID)
	if len(staffView) != 3 {
		t.Fatalf("staff sees %d bids", len(staffView))
	}
	own, _ := f.svc.ListForAd(ctx, testfixture.Principal(rival), f.ad.ID)
	if len(own) != 1 || own[0].Bidder.UserID != rival.UserID {
		t.Fatalf("rival sees %+v", own)
	}
	mine, _ := f.svc.ListMine(ctx, f.driver.UserID)
	if len(mine) != 2 {
		t.Fatalf("mine = %d", len(mine))
	}
}
