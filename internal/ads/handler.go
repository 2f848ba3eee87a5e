package ads

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"freight-service/internal/domain"
	"freight-service/internal/httpx"
	"freight-service/internal/storage"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/request"
	"freight-service/pkg/response"
)

// Handler exposes ad HTTP endpoints.
type Handler struct {
	svc *Service
	log logger.ILogger
}

func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// Routes returns the /ads router. bids serves /ads/{id}/bids.
func (h *Handler) Routes(bids http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	if bids != nil {
		r.Mount("/{id}/bids", bids)
	}
	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	ad, err := h.svc.Create(r.Context(), httpx.Principal(r.Context()), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "ad posted", ad)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ad, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", ad)
}

// List filters by ?kind=, ?mine=true and ?open=true on top of the usual
// search and paging parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.AdFilter{ListQuery: httpx.ListQuery(r), OpenOnly: cast.ToBool(q.Get("open"))}
	if raw := q.Get("kind"); raw != "" {
		kind, err := domain.ParseRole(raw)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		f.Kind = kind
	}
	if cast.ToBool(q.Get("mine")) {
		f.PosterUserID = httpx.Principal(r.Context()).UserID
	}

	page, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", httpx.NewPage(page))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	ad, err := h.svc.Update(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "ad updated", ad)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "ad deleted", nil)
}
