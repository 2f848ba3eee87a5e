package bookings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/httpx"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/request"
	"freight-service/pkg/response"
)

// Handler exposes booking HTTP endpoints.
type Handler struct {
	svc *Service
	log logger.ILogger
}

func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// Routes returns the /bookings router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/advance", h.Advance)
	r.Get("/{id}/transactions", h.ListTransactions)
	r.Post("/{id}/transactions", h.RecordTransaction)
	return r
}

// Accept serves POST /ads/{id}/bids/{bidID}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.AcceptBid(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "bidID"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "bid accepted", b)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	bs, err := h.svc.ListMine(r.Context(), httpx.Principal(r.Context()).UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", bs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", b)
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if r.ContentLength != 0 {
		if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
			return
		}
	}
	b, err := h.svc.Advance(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "booking advanced", b)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ts, err := h.svc.ListTransactions(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", ts)
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if request.HandleError(w, request.ReadAndValidate(w, r, &req)) {
		return
	}
	t, err := h.svc.RecordTransaction(r.Context(), httpx.Principal(r.Context()), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Created(w, "transaction recorded", t)
}
