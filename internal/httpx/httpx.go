// Package httpx holds the HTTP glue shared by every handler: domain error
// rendering, principal lookup, listing params and request logging.
package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/response"
)

var statusByCode = map[domain.Code]int{
	domain.CodeNotVerified:      http.StatusForbidden,
	domain.CodeRoleMismatch:     http.StatusForbidden,
	domain.CodeForbidden:        http.StatusForbidden,
	domain.CodeAdClosed:         http.StatusConflict,
	domain.CodeConflict:         http.StatusConflict,
	domain.CodeInvalidState:     http.StatusConflict,
	domain.CodeNotFound:         http.StatusNotFound,
	domain.CodeUnauthorized:     http.StatusUnauthorized,
	domain.CodeInvalidBid:       http.StatusUnprocessableEntity,
	domain.CodeInvalidAmount:    http.StatusUnprocessableEntity,
	domain.CodeInvalidRole:      http.StatusUnprocessableEntity,
	domain.CodeMissingDocuments: http.StatusUnprocessableEntity,
	domain.CodeInvalidInput:     http.StatusUnprocessableEntity,
	domain.CodeInvalidPassword:  http.StatusUnprocessableEntity,
}

// StatusOf returns the HTTP status for a domain code, 500 for anything else.
func StatusOf(err error) int {
	if s, ok := statusByCode[domain.CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error renders err. Domain errors carry their field and code; anything else
// is logged and hidden behind a 500.
func Error(w http.ResponseWriter, r *http.Request, log logger.ILogger, err error) {
	e, ok := domain.AsError(err)
	if !ok {
		log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		_ = response.InternalServerError(w, "internal server error")
		return
	}
	_ = response.Fail(w, StatusOf(err), e.Reason, response.ErrorDetail{
		Field:   e.Field,
		Message: e.Reason,
		Code:    string(e.Code),
	})
}

// Principal returns the authenticated caller. Routes using it sit behind
// jwt.RequireAuth, so claims are present.
func Principal(ctx context.Context) domain.Principal {
	c := jwt.GetClaims(ctx)
	if c == nil {
		return domain.Principal{}
	}
	return domain.Principal{UserID: c.UserID, IsStaff: c.Staff}
}

// ListQuery reads search, offset and limit from the query string.
func ListQuery(r *http.Request) storage.ListQuery {
	q := r.URL.Query()
	lq := storage.ListQuery{
		Search: q.Get("search"),
		Offset: cast.ToInt(q.Get("offset")),
		Limit:  cast.ToInt(q.Get("limit")),
	}
	if lq.Offset < 0 {
		lq.Offset = 0
	}
	if lq.Limit <= 0 || lq.Limit > 100 {
		lq.Limit = 20
	}
	return lq
}

// Page is the JSON envelope of a paginated listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
}

func NewPage[T any](p storage.Page[T]) Page[T] {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: p.Total, Filtered: p.Filtered}
}

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(log logger.ILogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			if reqID == "" {
				reqID = uuid.NewString()
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("request completed",
				logger.String("request_id", reqID),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)))
		})
	}
}
