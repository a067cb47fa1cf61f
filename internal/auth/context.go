package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer       Role = "customer"
	RoleProfessional   Role = "professional"
	RoleFranchiseAdmin Role = "franchise_admin"
	RoleAdmin          Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleProfessional, RoleFranchiseAdmin, RoleAdmin:
		return true
	}
	return false
}

// RequestContext identifies the caller of a request. Middleware extracts it;
// handlers pass it explicitly to service calls.
type RequestContext struct {
	UserID      uuid.UUID
	Role        Role
	FranchiseID *uuid.UUID
}

// SameFranchise reports whether the caller belongs to franchiseID.
func (rc RequestContext) SameFranchise(franchiseID *uuid.UUID) bool {
	return rc.FranchiseID != nil && franchiseID != nil && *rc.FranchiseID == *franchiseID
}

type ctxKey string

const requestContextKey ctxKey = "booking.request_context"

func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(RequestContext)
	return rc, ok && rc.UserID != uuid.Nil
}
