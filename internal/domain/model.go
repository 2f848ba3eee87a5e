package domain

import (
	"strings"
	"time"
	"unicode"
)

// Gender choices carried over from the account form.
const (
	GenderMale        = "M"
	GenderFemale      = "F"
	GenderUnspecified = "D"
)

// User is a natural person account. Phone number is the login identifier.
type User struct {
	ID           string     `json:"id"`
	Phone        string     `json:"phone_number"`
	Email        *string    `json:"email"`
	FullName     string     `json:"full_name"`
	Gender       *string    `json:"gender"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	IsStaff      bool       `json:"-"`
	PasswordHash string     `json:"-"`
	DateJoined   time.Time  `json:"date_joined"`
}

// Profile is a role profile of a user. A user holds at most one per role.
type Profile struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Role       Role       `json:"role"`
	IsVerified *bool      `json:"is_verified"`
	CreatedAt  time.Time  `json:"created"`
	Documents  []Document `json:"documents,omitempty"`
}

func (p *Profile) State() VerificationState {
	return StateFromFlag(p.IsVerified)
}

// Document is an uploaded proof attached to a verification request.
type Document struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Role      Role      `json:"role"`
	FileRef   string    `json:"file"`
	CreatedAt time.Time `json:"created"`
}

type VehicleCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Vehicle belongs to a driver profile.
type Vehicle struct {
	ID                 string    `json:"id"`
	DriverID           string    `json:"driver_id"`
	RegistrationNumber string    `json:"registration_number"`
	Capacity           int       `json:"capacity"`
	CategoryID         string    `json:"category_id"`
	CategoryTitle      string    `json:"category"`
	CreatedAt          time.Time `json:"created"`
}

// Party identifies one side of a deal: a role profile and its owner.
type Party struct {
	ProfileID string `json:"profile_id"`
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
}

// Ad is a posted transport need (Kind customer) or offer (Kind driver).
// Kind is always the poster's role.
type Ad struct {
	ID         string    `json:"id"`
	Kind       Role      `json:"kind"`
	Poster     Party     `json:"poster"`
	Vehicle    *Vehicle  `json:"vehicle,omitempty"`
	StartPlace string    `json:"start_place"`
	EndPlace   string    `json:"end_place"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Cost       float64   `json:"cost"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created"`
	BookingID  *string   `json:"booking_id,omitempty"`
}

// Closed reports whether a bid has been accepted on the ad.
func (a *Ad) Closed() bool {
	return a.BookingID != nil
}

// Bid is a counter-offer on an ad from the opposite role.
type Bid struct {
	ID        string    `json:"id"`
	AdID      string    `json:"ad_id"`
	AdKind    Role      `json:"ad_kind"`
	Bidder    Party     `json:"bidder"`
	Vehicle   *Vehicle  `json:"vehicle,omitempty"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created"`
}

// Transaction is one payment entry against a fulfilled booking.
type Transaction struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created"`
}

// Device is a push registration for a user.
type Device struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	RegistrationID string    `json:"registration_id"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created"`
}

// NormalizeFullName capitalizes the first letter and lowercases the rest.
func NormalizeFullName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	runes := []rune(strings.ToLower(name))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ValidGender reports whether g is one of the accepted gender codes.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderUnspecified
}

// ValidateAdTerms checks the posted route, window, price and quantity.
func ValidateAdTerms(startPlace, endPlace string, start, end time.Time, cost float64, quantity int) error {
	switch {
	case strings.TrimSpace(startPlace) == "":
		return NewError(CodeInvalidInput, "start_place", "start place is required")
	case strings.TrimSpace(endPlace) == "":
		return NewError(CodeInvalidInput, "end_place", "end place is required")
	case start.IsZero() || end.IsZero():
		return NewError(CodeInvalidInput, "start_time", "start and end time are required")
	case !end.After(start):
		return NewError(CodeInvalidInput, "end_time", "end time must be after start time")
	case quantity <= 0:
		return NewError(CodeInvalidInput, "quantity", "quantity must be positive")
	}
	return ValidateMoney("cost", cost)
}
