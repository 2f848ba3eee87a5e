package bids

// PlaceRequest is the body for POST /ads/{id}/bids. Role is the side the
// bidder acts on and must be the opposite of the ad's kind.
type PlaceRequest struct {
	Role      string  `json:"role" validate:"required"`
	Cost      float64 `json:"cost" validate:"required,gt=0"`
	VehicleID string  `json:"vehicle_id"`
}
