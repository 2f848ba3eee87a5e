package ads

import (
	"context"
	"errors"
	"testing"
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/internal/storage/memory"
	"freight-service/internal/testfixture"
	"freight-service/pkg/logger"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return NewService(store, logger.NewNop()), store
}

func customerAd(cost float64) CreateRequest {
	return CreateRequest{
		Kind:       "customer",
		StartPlace: "Tashkent",
		EndPlace:   "Bukhara",
		StartTime:  testfixture.Day,
		EndTime:    testfixture.Day.Add(12 * time.Hour),
		Cost:       cost,
		Quantity:   3,
	}
}

func TestCreateRequiresVerifiedPoster(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	u := testfixture.User(t, store, "Pending")
	pending := testfixture.Party(t, store, u, domain.RoleCustomer, domain.VerificationPending)
	if _, err := svc.Create(ctx, testfixture.Principal(pending), customerAd(100)); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("pending: got %v", err)
	}

	rejected := testfixture.Party(t, store, testfixture.User(t, store, "Rejected"), domain.RoleCustomer, domain.VerificationRejected)
	if _, err := svc.Create(ctx, testfixture.Principal(rejected), customerAd(100)); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("rejected: got %v", err)
	}

	// A verified driver profile does not let the user post customer ads.
	driver := testfixture.Verified(t, store, "Driver", domain.RoleDriver)
	if _, err := svc.Create(ctx, testfixture.Principal(driver), customerAd(100)); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("wrong role: got %v", err)
	}

	customer := testfixture.Verified(t, store, "Customer", domain.RoleCustomer)
	ad, err := svc.Create(ctx, testfixture.Principal(customer), customerAd(100))
	if err != nil {
		t.Fatal(err)
	}
	if ad.Kind != domain.RoleCustomer || ad.Poster != customer || ad.Vehicle != nil || ad.Closed() {
		t.Fatalf("unexpected ad %+v", ad)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	customer := testfixture.Verified(t, store, "Customer", domain.RoleCustomer)
	driver := testfixture.Verified(t, store, "Driver", domain.RoleDriver)
	other := testfixture.Verified(t, store, "Other", domain.RoleDriver)
	otherTruck := testfixture.Vehicle(t, store, other, "OT1")

	bad := customerAd(100)
	bad.Kind = "boss"
	if _, err := svc.Create(ctx, testfixture.Principal(customer), bad); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("kind: got %v", err)
	}

	bad = customerAd(100)
	bad.EndTime = bad.StartTime
	if err := fieldOf(svc.Create(ctx, testfixture.Principal(customer), bad)); err != "end_time" {
		t.Fatalf("window field = %q", err)
	}

	bad = customerAd(100)
	bad.VehicleID = otherTruck.ID
	if err := fieldOf(svc.Create(ctx, testfixture.Principal(customer), bad)); err != "vehicle_id" {
		t.Fatalf("customer vehicle field = %q", err)
	}

	driverAd := customerAd(100)
	driverAd.Kind = "D"
	driverAd.VehicleID = otherTruck.ID
	if _, err := svc.Create(ctx, testfixture.Principal(driver), driverAd); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign vehicle: got %v", err)
	}

	own := testfixture.Vehicle(t, store, driver, "DR1")
	driverAd.VehicleID = own.ID
	ad, err := svc.Create(ctx, testfixture.Principal(driver), driverAd)
	if err != nil {
		t.Fatal(err)
	}
	if ad.Kind != domain.RoleDriver || ad.Vehicle == nil || ad.Vehicle.ID != own.ID {
		t.Fatalf("unexpected ad %+v", ad)
	}
}

func fieldOf(_ *domain.Ad, err error) string {
	e, ok := domain.AsError(err)
	if !ok {
		return ""
	}
	return e.Field
}

// book closes an ad the way an accepted bid does.
func book(t *testing.T, store *memory.Store, ad *domain.Ad, bidder domain.Party, vehicle *domain.Vehicle) {
	t.Helper()
	ctx := context.Background()
	bid := &domain.Bid{ID: "bid-" + ad.ID, AdID: ad.ID, AdKind: ad.Kind, Bidder: bidder, Vehicle: vehicle, Cost: 90, CreatedAt: time.Now()}
	if err := store.Bid().Create(ctx, bid); err != nil {
		t.Fatal(err)
	}
	b, err := domain.NewBooking("booking-"+ad.ID, ad, bid, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Booking().Create(ctx, b); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	customer := testfixture.Verified(t, store, "Customer", domain.RoleCustomer)
	driver := testfixture.Verified(t, store, "Driver", domain.RoleDriver)
	truck := testfixture.Vehicle(t, store, driver, "TR1")

	ad, err := svc.Create(ctx, testfixture.Principal(customer), customerAd(100))
	if err != nil {
		t.Fatal(err)
	}

	cost := 150.0
	if _, err := svc.Update(ctx, testfixture.Principal(driver), ad.ID, UpdateRequest{Cost: &cost}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-poster: got %v", err)
	}
	updated, err := svc.Update(ctx, testfixture.Principal(customer), ad.ID, UpdateRequest{Cost: &cost})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Cost != 150 || updated.StartPlace != "Tashkent" {
		t.Fatalf("unexpected ad %+v", updated)
	}

	earlier := testfixture.Day.Add(-time.Hour)
	if _, err := svc.Update(ctx, testfixture.Principal(customer), ad.ID, UpdateRequest{EndTime: &earlier}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad window: got %v", err)
	}
	got, _ := svc.Get(ctx, ad.ID)
	if !got.EndTime.Equal(testfixture.Day.Add(12 * time.Hour)) {
		t.Fatal("rejected update must not persist")
	}

	book(t, store, updated, driver, truck)

	if _, err := svc.Update(ctx, testfixture.Principal(customer), ad.ID, UpdateRequest{Cost: &cost}); !errors.Is(err, domain.ErrAdClosed) {
		t.Fatalf("update after booking: got %v", err)
	}
	if err := svc.Delete(ctx, testfixture.Principal(customer), ad.ID); !errors.Is(err, domain.ErrAdClosed) {
		t.Fatalf("delete after booking: got %v", err)
	}
}

func TestDeleteOpenAd(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	customer := testfixture.Verified(t, store, "Customer", domain.RoleCustomer)

	ad, err := svc.Create(ctx, testfixture.Principal(customer), customerAd(100))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, domain.Principal{UserID: "someone"}, ad.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-poster: got %v", err)
	}
	if err := svc.Delete(ctx, testfixture.Principal(customer), ad.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, ad.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestList(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	customer := testfixture.Verified(t, store, "Customer", domain.RoleCustomer)
	driver := testfixture.Verified(t, store, "Driver", domain.RoleDriver)

	first, err := svc.Create(ctx, testfixture.Principal(customer), customerAd(100))
	if err != nil {
		t.Fatal(err)
	}
	second := customerAd(200)
	second.StartPlace = "Namangan"
	if _, err := svc.Create(ctx, testfixture.Principal(customer), second); err != nil {
		t.Fatal(err)
	}
	offer := customerAd(300)
	offer.Kind = "driver"
	if _, err := svc.Create(ctx, testfixture.Principal(driver), offer); err != nil {
		t.Fatal(err)
	}
	book(t, store, first, driver, nil)

	page, err := svc.List(ctx, storage.AdFilter{Kind: domain.RoleCustomer})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("customer ads = %+v", page)
	}

	page, _ = svc.List(ctx, storage.AdFilter{Kind: domain.RoleCustomer, OpenOnly: true})
	if len(page.Items) != 1 || page.Items[0].StartPlace != "Namangan" {
		t.Fatalf("open ads = %+v", page.Items)
	}

	page, _ = svc.List(ctx, storage.AdFilter{ListQuery: storage.ListQuery{Search: "nam"}})
	if page.Filtered != 1 {
		t.Fatalf("search filtered = %d", page.Filtered)
	}

	page, _ = svc.List(ctx, storage.AdFilter{PosterUserID: driver.UserID})
	if len(page.Items) != 1 || page.Items[0].Kind != domain.RoleDriver {
		t.Fatalf("mine = %+v", page.Items)
	}
}
