package api

import (
	"net/http"

	"github.com/okian/peerfeedback/internal/domain/model"
)

// Headers set by the trusted session provider in front of this service.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

type identity struct {
	UserID string
	Role   model.Role
}

func (i identity) isAdmin() bool { return i.Role == model.RoleAdmin }

// identityFrom reads the caller from the session headers.
func identityFrom(r *http.Request, op string) (identity, error) {
	id := identity{
		UserID: r.Header.Get(headerUserID),
		Role:   model.Role(r.Header.Get(headerUserRole)),
	}
	if err := model.ValidateIdentity(id.UserID); err != nil {
		return identity{}, WrapKind(op, ErrUnauthorized, err)
	}
	if !id.Role.Valid() {
		return identity{}, NewKind(op, ErrUnauthorized)
	}
	return id, nil
}

// requireAdmin is identityFrom plus a role check.
func requireAdmin(r *http.Request, op string) (identity, error) {
	id, err := identityFrom(r, op)
	if err != nil {
		return identity{}, err
	}
	if !id.isAdmin() {
		return identity{}, NewKind(op, ErrForbidden)
	}
	return id, nil
}
