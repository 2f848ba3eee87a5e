package profiles

import (
	"io"

	"freight-service/internal/domain"
)

// Upload is one document file attached to a verification request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ProfileView is returned by GET /drivers/me and /customers/me.
type ProfileView struct {
	domain.Profile
	State domain.VerificationState `json:"state"`
}

func newView(p *domain.Profile) *ProfileView {
	return &ProfileView{Profile: *p, State: p.State()}
}
