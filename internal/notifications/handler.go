package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/httpx"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/request"
	"freight-service/pkg/response"
)

// DeviceRequest is the body for POST /notifications/devices.
type DeviceRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
	Type           string `json:"device_type" validate:"required"`
}

type Handler struct {
	svc *Service
	log logger.ILogger
}

func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// Routes returns the /notifications router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.List)
	r.Post("/{id}/read", h.MarkRead)
	r.Get("/devices", h.Devices)
	r.Post("/devices", h.RegisterDevice)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), httpx.Principal(r.Context()).UserID, httpx.ListQuery(r))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", httpx.NewPage(page))
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkRead(r.Context(), httpx.Principal(r.Context()).UserID, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "marked as read", nil)
}

func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	if err := h.svc.RegisterDevice(r.Context(), httpx.Principal(r.Context()).UserID, req.RegistrationID, req.Type); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "device registered", nil)
}

func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.Devices(r.Context(), httpx.Principal(r.Context()).UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", ds)
}
