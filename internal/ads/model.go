package ads

import "time"

// CreateRequest is the body for POST /ads. Kind is the poster's role:
// "customer" posts a transport need, "driver" offers capacity.
type CreateRequest struct {
	Kind       string    `json:"kind" validate:"required"`
	VehicleID  string    `json:"vehicle_id"`
	StartPlace string    `json:"start_place" validate:"required,max=255"`
	EndPlace   string    `json:"end_place" validate:"required,max=255"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required"`
	Cost       float64   `json:"cost" validate:"required,gt=0"`
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateRequest is the body for PATCH /ads/{id}. Absent fields are kept.
type UpdateRequest struct {
	VehicleID  *string    `json:"vehicle_id"`
	StartPlace *string    `json:"start_place" validate:"omitempty,max=255"`
	EndPlace   *string    `json:"end_place" validate:"omitempty,max=255"`
	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Cost       *float64   `json:"cost" validate:"omitempty,gt=0"`
	Quantity   *int       `json:"quantity" validate:"omitempty,gt=0"`
}
