package vehicles

// CreateRequest is the body for POST /vehicles.
type CreateRequest struct {
	RegistrationNumber string `json:"registration_number" validate:"required,max=32"`
	Capacity           int    `json:"capacity" validate:"required,gt=0"`
	CategoryID         string `json:"category_id" validate:"required"`
}

// CategoryRequest is the body for POST /vehicle-categories.
type CategoryRequest struct {
	Title string `json:"title" validate:"required,max=64"`
}
