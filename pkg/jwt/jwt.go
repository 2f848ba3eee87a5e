package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"freight-service/pkg/response"
)

// Claims represents the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone_number"`
	Staff  bool   `json:"staff"`
	gojwt.RegisteredClaims
}

// Revoker reports tokens withdrawn before their expiry (logout).
type Revoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type ctxKey string

const claimsCtxKey ctxKey = "jwt_claims"

// ErrRevoked is returned by Authenticate for a withdrawn token.
var ErrRevoked = errors.New("token revoked")

var (
	secret  []byte
	ttl     = 24 * time.Hour
	revoker Revoker
)

// Init must be called once at startup with the JWT secret and token lifetime.
func Init(s string, tokenTTL time.Duration) error {
	if s == "" {
		return errors.New("JWT_SECRET is required")
	}
	secret = []byte(s)
	if tokenTTL > 0 {
		ttl = tokenTTL
	}
	return nil
}

// SetRevoker installs the logout blacklist consulted by OptionalAuth.
func SetRevoker(r Revoker) { revoker = r }

// Generate creates a signed JWT for the given user. Every token carries a
// unique id so it can be revoked on its own.
func Generate(userID, phone string, staff bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Phone:  phone,
		Staff:  staff,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate parses and validates a raw JWT string.
func Validate(raw string) (*Claims, error) {
	token, err := gojwt.ParseWithClaims(raw, &Claims{}, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Remaining is how long the token stays valid; used as the revocation TTL.
func (c *Claims) Remaining() time.Duration {
	if c.ExpiresAt == nil {
		return ttl
	}
	return time.Until(c.ExpiresAt.Time)
}

// ---- HTTP Middleware ----

// OptionalAuth extracts JWT claims into context if a Bearer token is present.
// Requests without a token pass through (claims will be nil). Revoked tokens
// are treated as absent, and so is a token whose revocation state cannot be
// read.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			if claims, err := Authenticate(r.Context(), auth[7:]); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate validates raw and rejects it when revoked or when its
// revocation state cannot be read.
func Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	if revoked(ctx, claims) {
		return nil, ErrRevoked
	}
	return claims, nil
}

func revoked(ctx context.Context, c *Claims) bool {
	if revoker == nil {
		return false
	}
	gone, err := revoker.IsRevoked(ctx, c.ID)
	return err != nil || gone
}

// RequireAuth rejects requests that have no valid JWT in context.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil {
			_ = response.Unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects requests from anyone but staff accounts.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := GetClaims(r.Context())
		if c == nil {
			_ = response.Unauthorized(w, "unauthorized")
			return
		}
		if !c.Staff {
			_ = response.Forbidden(w, "staff only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// GetClaims retrieves the parsed claims from context (nil if absent).
func GetClaims(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsCtxKey).(*Claims)
	return c
}
