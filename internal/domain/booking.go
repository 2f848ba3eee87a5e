package domain

import (
	"math"
	"time"
)

// BookingStatus walks PENDING -> ACCEPTED -> DISPATCHED -> FULFILLED.
// PENDING is the ad's pre-acceptance state; bookings are born ACCEPTED.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusAccepted   BookingStatus = "ACCEPTED"
	StatusDispatched BookingStatus = "DISPATCHED"
	StatusFulfilled  BookingStatus = "FULFILLED"
)

var statusOrder = []BookingStatus{StatusPending, StatusAccepted, StatusDispatched, StatusFulfilled}

var statusLabels = map[BookingStatus]string{
	StatusPending:    "Pending",
	StatusAccepted:   "Accepted",
	StatusDispatched: "Dispatched",
	StatusFulfilled:  "Fulfilled",
}

func (s BookingStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s BookingStatus) Label() string {
	return statusLabels[s]
}

// Next returns the single state reachable from s.
func (s BookingStatus) Next() (BookingStatus, bool) {
	for i, st := range statusOrder {
		if st == s && i+1 < len(statusOrder) {
			return statusOrder[i+1], true
		}
	}
	return "", false
}

// CanTransition allows exactly one forward step; nothing skips or regresses.
func CanTransition(from, to BookingStatus) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Projection is the driver/customer/vehicle/price view of an ad and its
// accepted bid. The driver's side is authoritative for vehicle and price.
type Projection struct {
	Driver     Party    `json:"driver"`
	Customer   Party    `json:"customer"`
	Vehicle    *Vehicle `json:"vehicle,omitempty"`
	Price      float64  `json:"price"`
	StartPlace string   `json:"start_place"`
	EndPlace   string   `json:"end_place"`
}

// ProjectBooking derives the booking view positionally. On a customer ad the
// bidder is the driver and supplies vehicle and price; on a driver ad the
// poster is the driver and the ad's vehicle and price apply.
func ProjectBooking(ad *Ad, bid *Bid) (Projection, error) {
	if ad == nil || bid == nil {
		return Projection{}, NewError(CodeInvalidBid, "bid", "ad and bid are required")
	}
	if bid.AdID != ad.ID {
		return Projection{}, NewError(CodeInvalidBid, "bid", "bid does not belong to this ad")
	}
	if bid.AdKind != ad.Kind || bid.Bidder.Role != ad.Kind.Opposite() {
		return Projection{}, NewError(CodeInvalidBid, "bid", "bid role does not match the ad")
	}

	p := Projection{StartPlace: ad.StartPlace, EndPlace: ad.EndPlace}
	switch ad.Kind {
	case RoleCustomer:
		p.Driver = bid.Bidder
		p.Customer = ad.Poster
		p.Vehicle = bid.Vehicle
		p.Price = bid.Cost
	case RoleDriver:
		p.Driver = ad.Poster
		p.Customer = bid.Bidder
		p.Vehicle = ad.Vehicle
		p.Price = ad.Cost
	default:
		return Projection{}, NewError(CodeInvalidBid, "ad", "unknown ad kind")
	}
	return p, nil
}

// Booking is the frozen match of an ad and its accepted bid.
type Booking struct {
	ID         string        `json:"id"`
	AdID       string        `json:"ad_id"`
	BidID      string        `json:"bid_id"`
	CustomerAd bool          `json:"customer_ad"`
	Status     BookingStatus `json:"status"`
	Projection
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// NewBooking freezes the projection of ad and bid into an ACCEPTED booking.
func NewBooking(id string, ad *Ad, bid *Bid, now time.Time) (*Booking, error) {
	p, err := ProjectBooking(ad, bid)
	if err != nil {
		return nil, err
	}
	return &Booking{
		ID:         id,
		AdID:       ad.ID,
		BidID:      bid.ID,
		CustomerAd: ad.Kind == RoleCustomer,
		Status:     StatusAccepted,
		Projection: p,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Involves reports whether the user is the booking's driver or customer.
func (b *Booking) Involves(userID string) bool {
	return b.Driver.UserID == userID || b.Customer.UserID == userID
}

// MaxMoney is the largest value a NUMERIC(12, 2) money column holds.
const MaxMoney = 9999999999.99

// moneyProblem describes why v is not a storable money value: positive,
// at most MaxMoney and no finer than a cent.
func moneyProblem(v float64) string {
	switch {
	case !(v > 0):
		return "must be positive"
	case v > MaxMoney:
		return "must not exceed 9999999999.99"
	}
	cents := v * 100
	if math.Abs(cents-math.Round(cents)) > 1e-3 {
		return "must have at most two decimal places"
	}
	return ""
}

// ValidateMoney checks a price or cost field, failing with InvalidInput.
func ValidateMoney(field string, v float64) error {
	if p := moneyProblem(v); p != "" {
		return NewError(CodeInvalidInput, field, field+" "+p)
	}
	return nil
}

// ValidateAmount checks a payment amount, failing with InvalidAmount.
func ValidateAmount(amount float64) error {
	if p := moneyProblem(amount); p != "" {
		return NewError(CodeInvalidAmount, "amount", "amount "+p)
	}
	return nil
}
