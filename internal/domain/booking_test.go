package domain

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func fixtureParties() (driver, customer Party) {
	driver = Party{ProfileID: "drv-1", UserID: "u-driver", FullName: "Dana driver", Role: RoleDriver}
	customer = Party{ProfileID: "cus-1", UserID: "u-customer", FullName: "Chris customer", Role: RoleCustomer}
	return driver, customer
}

func TestProjectBookingCustomerAd(t *testing.T) {
	driver, customer := fixtureParties()
	v1 := &Vehicle{ID: "V1", DriverID: driver.ProfileID, RegistrationNumber: "KA-01-1234"}

	ad := &Ad{ID: "ad-1", Kind: RoleCustomer, Poster: customer, StartPlace: "Pune", EndPlace: "Goa", Cost: 100}
	bid := &Bid{ID: "bid-1", AdID: "ad-1", AdKind: RoleCustomer, Bidder: driver, Vehicle: v1, Cost: 80}

	p, err := ProjectBooking(ad, bid)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if p.Vehicle == nil || p.Vehicle.ID != "V1" {
		t.Fatalf("vehicle = %+v, want V1", p.Vehicle)
	}
	if p.Price != 80 {
		t.Fatalf("price = %v, want 80", p.Price)
	}
	if p.Driver != driver || p.Customer != customer {
		t.Fatalf("parties = %+v / %+v", p.Driver, p.Customer)
	}
	if p.StartPlace != "Pune" || p.EndPlace != "Goa" {
		t.Fatalf("route = %s -> %s", p.StartPlace, p.EndPlace)
	}
}

func TestProjectBookingDriverAd(t *testing.T) {
	driver, customer := fixtureParties()
	v2 := &Vehicle{ID: "V2", DriverID: driver.ProfileID}

	ad := &Ad{ID: "ad-2", Kind: RoleDriver, Poster: driver, Vehicle: v2, Cost: 150}
	bid := &Bid{ID: "bid-2", AdID: "ad-2", AdKind: RoleDriver, Bidder: customer, Cost: 90}

	p, err := ProjectBooking(ad, bid)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if p.Vehicle == nil || p.Vehicle.ID != "V2" {
		t.Fatalf("vehicle = %+v, want V2", p.Vehicle)
	}
	if p.Price != 150 {
		t.Fatalf("price = %v, want ad cost 150", p.Price)
	}
	if p.Driver != driver || p.Customer != customer {
		t.Fatalf("parties = %+v / %+v", p.Driver, p.Customer)
	}
}

func TestProjectBookingRejectsForeignBid(t *testing.T) {
	driver, customer := fixtureParties()
	ad := &Ad{ID: "ad-1", Kind: RoleCustomer, Poster: customer}

	cases := []struct {
		name string
		bid  *Bid
	}{
		{"other ad", &Bid{ID: "b", AdID: "ad-9", AdKind: RoleCustomer, Bidder: driver}},
		{"kind mismatch", &Bid{ID: "b", AdID: "ad-1", AdKind: RoleDriver, Bidder: driver}},
		{"same role bidder", &Bid{ID: "b", AdID: "ad-1", AdKind: RoleCustomer, Bidder: customer}},
		{"nil bid", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ProjectBooking(ad, tc.bid); !errors.Is(err, ErrInvalidBid) {
				t.Fatalf("err = %v, want InvalidBid", err)
			}
		})
	}
}

func TestNewBookingFreezesProjection(t *testing.T) {
	driver, customer := fixtureParties()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ad := &Ad{ID: "ad-1", Kind: RoleCustomer, Poster: customer, Cost: 100}
	bid := &Bid{ID: "bid-1", AdID: "ad-1", AdKind: RoleCustomer, Bidder: driver, Cost: 80}

	b, err := NewBooking("bk-1", ad, bid, now)
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	if b.Status != StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", b.Status)
	}
	if !b.CustomerAd || b.Price != 80 || b.AdID != "ad-1" || b.BidID != "bid-1" {
		t.Fatalf("booking = %+v", b)
	}
	if !b.Involves("u-driver") || !b.Involves("u-customer") || b.Involves("someone") {
		t.Fatal("involves mismatch")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusAccepted, StatusDispatched, true},
		{StatusDispatched, StatusFulfilled, true},
		{StatusAccepted, StatusFulfilled, false},
		{StatusDispatched, StatusAccepted, false},
		{StatusFulfilled, StatusDispatched, false},
		{StatusFulfilled, StatusFulfilled, false},
		{StatusAccepted, "CANCELLED", false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func statusRank(s BookingStatus) int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func TestStatusNeverRegressesRandomWalk(t *testing.T) {
	all := append([]BookingStatus{"BOGUS"}, statusOrder...)
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 500; run++ {
		cur := StatusAccepted
		for step := 0; step < 20; step++ {
			to := all[rng.Intn(len(all))]
			if !CanTransition(cur, to) {
				continue
			}
			if statusRank(to) != statusRank(cur)+1 {
				t.Fatalf("transition %s -> %s is not a single forward step", cur, to)
			}
			cur = to
		}
	}
}

func FuzzStatusTransitions(f *testing.F) {
	f.Add("ACCEPTED", "DISPATCHED")
	f.Add("FULFILLED", "ACCEPTED")
	f.Add("PENDING", "FULFILLED")
	f.Fuzz(func(t *testing.T, from, to string) {
		a, b := BookingStatus(from), BookingStatus(to)
		if !CanTransition(a, b) {
			return
		}
		if !a.Valid() || !b.Valid() {
			t.Fatalf("transition accepted for unknown status %q -> %q", from, to)
		}
		if statusRank(b) != statusRank(a)+1 {
			t.Fatalf("transition %q -> %q skips or regresses", from, to)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	for _, amount := range []float64{0, -1, -0.01} {
		if err := ValidateAmount(amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ValidateAmount(%v) = %v, want InvalidAmount", amount, err)
		}
	}
	if err := ValidateAmount(10.5); err != nil {
		t.Errorf("ValidateAmount(10.5) = %v", err)
	}
}

func TestMoneyPrecisionAndRange(t *testing.T) {
	valid := []float64{0.01, 10.5, 10.05, 0.1 + 0.2, 1234567.89, MaxMoney}
	for _, v := range valid {
		if err := ValidateAmount(v); err != nil {
			t.Errorf("ValidateAmount(%v) = %v", v, err)
		}
		if err := ValidateMoney("cost", v); err != nil {
			t.Errorf("ValidateMoney(%v) = %v", v, err)
		}
	}

	invalid := []float64{10.005, 0.001, 1e10, MaxMoney + 0.01, math.Inf(1), math.NaN()}
	for _, v := range invalid {
		if err := ValidateAmount(v); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ValidateAmount(%v) = %v, want InvalidAmount", v, err)
		}
		e, ok := AsError(ValidateMoney("cost", v))
		if !ok || e.Code != CodeInvalidInput || e.Field != "cost" {
			t.Errorf("ValidateMoney(%v) = %v, want InvalidInput on cost", v, e)
		}
	}
}
