package bids

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

// AdRoutes is mounted at /ads/{id}/bids. accept serves
// POST /ads/{id}/bids/{bidID}/accept.
func (h *Handler) AdRoutes(accept http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.ListForAd)
	r.Post("/", h.Place)
	if accept != nil {
		r.Post("/{bidID}/accept", accept)
	}
	return r
}

// Routes returns the /bids router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/mine", h.ListMine)
	return r
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	var req PlaceRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	bid, err := h.svc.Place(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "bid placed", bid)
}

func (h *Handler) ListForAd(w http.ResponseWriter, r *http.Request) {
	bs, err := h.svc.ListForAd(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", bs)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	bs, err := h.svc.ListMine(r.Context(), httpx.Principal(r.Context()).UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", bs)
}
