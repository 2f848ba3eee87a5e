package bookings

import "freight-service/internal/domain"

// AdvanceRequest is the body for POST /bookings/{id}/advance. An empty
// status means the next one in the lifecycle.
type AdvanceRequest struct {
	Status domain.BookingStatus `json:"status"`
}

// TransactionRequest is the body for POST /bookings/{id}/transactions.
type TransactionRequest struct {
	Amount float64 `json:"amount"`
}

// BookingView adds the display label of the status.
type BookingView struct {
	*domain.Booking
	StatusLabel string `json:"status_label"`
}

func newView(b *domain.Booking) *BookingView {
	return &BookingView{Booking: b, StatusLabel: b.Status.Label()}
}
