package domain

import (
	"strings"
	"unicode"
)

// Role is the marketplace side a profile acts on.
type Role string

const (
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// ParseRole accepts any declaration whose first letter is D or C, case
// insensitive ("driver", "D", "customer", "c").
func ParseRole(raw string) (Role, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", NewError(CodeInvalidRole, "role", "role required or not properly defined.")
	}
	switch unicode.ToUpper([]rune(raw)[0]) {
	case 'D':
		return RoleDriver, nil
	case 'C':
		return RoleCustomer, nil
	}
	return "", NewError(CodeInvalidRole, "role", "role required or not properly defined.")
}

func (r Role) Valid() bool {
	return r == RoleDriver || r == RoleCustomer
}

// Opposite returns the role allowed to bid on an ad posted under r.
func (r Role) Opposite() Role {
	switch r {
	case RoleDriver:
		return RoleCustomer
	case RoleCustomer:
		return RoleDriver
	}
	return ""
}

// VerificationState is the staff review outcome of a profile. It is stored as
// a nullable boolean: null pending, true verified, false rejected.
type VerificationState string

const (
	VerificationPending  VerificationState = "pending"
	VerificationVerified VerificationState = "verified"
	VerificationRejected VerificationState = "rejected"
)

func StateFromFlag(flag *bool) VerificationState {
	switch {
	case flag == nil:
		return VerificationPending
	case *flag:
		return VerificationVerified
	default:
		return VerificationRejected
	}
}

func (s VerificationState) Flag() *bool {
	switch s {
	case VerificationVerified:
		v := true
		return &v
	case VerificationRejected:
		v := false
		return &v
	}
	return nil
}

// Principal is the authenticated caller as supplied by the auth layer.
type Principal struct {
	UserID  string
	IsStaff bool
}
