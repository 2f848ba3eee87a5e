package users

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"freight-service/internal/httpx"
	"freight-service/internal/profiles"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/request"
	"freight-service/pkg/response"
)

const maxUploadMemory = 10 << 20

// Handler exposes account HTTP endpoints.
type Handler struct {
	svc *Service
	log logger.ILogger
}

// NewHandler wires a handler to the user service.
func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// AuthRoutes returns the /auth router. limit guards the credential
// endpoints.
func (h *Handler) AuthRoutes(limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public
	r.With(limit).Post("/register", h.Register)
	r.With(limit).Post("/login", h.Login)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})
	return r
}

// Routes returns the /users router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateMe)
	r.Post("/me/password", h.ChangePassword)
	return r
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		_ = response.BadRequest(w, "expected multipart form")
		return
	}
	in := RegisterInput{
		Phone:    r.FormValue("phone_number"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("full_name"),
		Gender:   r.FormValue("gender"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
		Device: Device{
			RegistrationID: r.FormValue("registration_id"),
			Type:           r.FormValue("device_type"),
		},
	}
	if raw := strings.TrimSpace(r.FormValue("date_of_birth")); raw != "" {
		dob, err := cast.ToTimeE(raw)
		if err != nil {
			_ = response.ValidationError(w, []response.ErrorDetail{{
				Field: "date_of_birth", Message: "Use the YYYY-MM-DD format", Code: "date",
			}})
			return
		}
		dob = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
		in.DateOfBirth = &dob
	}
	if request.HandleError(w, request.Validate(&in)) {
		return
	}

	docs, closeAll, err := profiles.ReadUploads(r.MultipartForm, "documents")
	if err != nil {
		_ = response.BadRequest(w, "unreadable document")
		return
	}
	defer closeAll()
	in.Documents = docs

	resp, err := h.svc.Register(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "registered", resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	if err := h.svc.Logout(r.Context(), claims.ID, claims.Remaining()); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "logged out", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Me(r.Context(), httpx.Principal(r.Context()).UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", acc)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	acc, err := h.svc.UpdateMe(r.Context(), httpx.Principal(r.Context()).UserID, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "updated", acc)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), httpx.Principal(r.Context()).UserID, req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "password changed", nil)
}
