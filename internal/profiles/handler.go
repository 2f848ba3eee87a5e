package profiles

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/domain"
	"freight-service/internal/httpx"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/response"
)

const maxUploadMemory = 10 << 20

// Handler exposes the verification workflow to profile owners.
type Handler struct {
	svc *Service
	log logger.ILogger
}

func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// Routes returns the /users/me/verification endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Post("/", h.RequestVerification)
	return r
}

// RoleRoutes returns the routes mounted at /drivers or /customers.
func (h *Handler) RoleRoutes(role domain.Role) chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		p, err := h.svc.Get(r.Context(), httpx.Principal(r.Context()).UserID, role)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		_ = response.Success(w, "", p)
	})
	return r
}

func (h *Handler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		_ = response.BadRequest(w, "expected multipart form")
		return
	}
	docs, closeAll, err := ReadUploads(r.MultipartForm, "documents")
	if err != nil {
		_ = response.BadRequest(w, "unreadable document")
		return
	}
	defer closeAll()

	p, err := h.svc.RequestVerification(r.Context(), httpx.Principal(r.Context()).UserID, r.FormValue("role"), docs)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "verification requested", p)
}

// ReadUploads opens every file of a multipart field. The returned func
// closes them all.
func ReadUploads(form *multipart.Form, field string) ([]Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}

	var uploads []Upload
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		files = append(files, f)
		uploads = append(uploads, Upload{Filename: fh.Filename, Content: f})
	}
	return uploads, closeAll, nil
}
