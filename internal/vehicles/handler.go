package vehicles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/httpx"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/request"
	"freight-service/pkg/response"
)

type Handler struct {
	svc *Service
	log logger.ILogger
}

func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// Routes returns the /vehicles router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.ListMine)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	return r
}

// CategoryRoutes returns the /vehicle-categories router.
func (h *Handler) CategoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Categories)
	r.With(jwt.RequireStaff).Post("/", h.CreateCategory)
	return r
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Categories(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", cs)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), httpx.Principal(r.Context()), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "category created", c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	v, err := h.svc.Create(r.Context(), httpx.Principal(r.Context()), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "vehicle registered", v)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.ListMine(r.Context(), httpx.Principal(r.Context()).UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", vs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", v)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "vehicle deleted", nil)
}
