package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/domain"
	"freight-service/internal/httpx"
	"freight-service/internal/storage"
	"freight-service/pkg/datatable"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/response"
)

type Handler struct {
	svc *Service
	log logger.ILogger
}

func NewHandler(svc *Service, log logger.ILogger) *Handler { return &Handler{svc: svc, log: log} }

// Routes returns the staff-only /admin router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth, jwt.RequireStaff)

	r.Get("/dashboard", h.Dashboard)

	r.Get("/users", grid(h, h.svc.Users))
	r.Get("/drivers", grid(h, h.byRole(domain.RoleDriver)))
	r.Get("/customers", grid(h, h.byRole(domain.RoleCustomer)))
	r.Get("/vehicles", grid(h, h.svc.Vehicles))
	r.Get("/customer-ads", grid(h, h.adsOf(domain.RoleCustomer)))
	r.Get("/driver-ads", grid(h, h.adsOf(domain.RoleDriver)))
	r.Get("/bookings", grid(h, h.svc.Bookings))
	r.Get("/transactions", grid(h, h.svc.Transactions))

	r.Post("/drivers/{id}/approve", h.decide(domain.RoleDriver, true))
	r.Post("/drivers/{id}/reject", h.decide(domain.RoleDriver, false))
	r.Post("/customers/{id}/approve", h.decide(domain.RoleCustomer, true))
	r.Post("/customers/{id}/reject", h.decide(domain.RoleCustomer, false))
	return r
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	_ = response.Success(w, "", d)
}

// grid serves one listing in the DataTables server-side format.
func grid[T any](h *Handler, list func(context.Context, storage.ListQuery) (storage.Page[T], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := datatable.Parse(r)
		page, err := list(r.Context(), storage.ListQuery{Search: p.Search, Offset: p.Start, Limit: p.Length})
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		_ = response.WriteJSON(w, http.StatusOK, datatable.NewResult(p, page.Total, page.Filtered, page.Items))
	}
}

func (h *Handler) byRole(role domain.Role) func(context.Context, storage.ListQuery) (storage.Page[storage.ProfileRow], error) {
	return func(ctx context.Context, q storage.ListQuery) (storage.Page[storage.ProfileRow], error) {
		return h.svc.Profiles(ctx, role, q)
	}
}

func (h *Handler) adsOf(kind domain.Role) func(context.Context, storage.ListQuery) (storage.Page[domain.Ad], error) {
	return func(ctx context.Context, q storage.ListQuery) (storage.Page[domain.Ad], error) {
		return h.svc.Ads(ctx, kind, q)
	}
}

func (h *Handler) decide(role domain.Role, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.svc.Decide(r.Context(), httpx.Principal(r.Context()), role, chi.URLParam(r, "id"), approve)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		_ = response.Success(w, "verification "+string(p.State), p)
	}
}
