package auth

import (
	"context"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"
)

// Caller is the authenticated principal of a request. Role is resolved once,
// when the credential is verified.
type Caller struct {
	UserID   string
	Role     models.Role
	Email    string
	Username string
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == models.RoleAdmin
}

type Capability string

const (
	CapBook           Capability = "book"
	CapPay            Capability = "pay"
	CapCancel         Capability = "cancel"
	CapRate           Capability = "rate"
	CapViewBooking    Capability = "view_booking"
	CapViewHistory    Capability = "view_history"
	CapRefund         Capability = "refund"
	CapOverrideStatus Capability = "override_status"
	CapListByStatus   Capability = "list_by_status"
	CapListAll        Capability = "list_all"
	CapViewAnalytics  Capability = "view_analytics"
	CapManagePackages Capability = "manage_packages"
	CapViewUsers      Capability = "view_users"
)

type rule struct {
	roles []models.Role
	// owner grants the capability to the caller whose id matches the resource owner.
	owner bool
}

var policy = map[Capability]rule{
	CapBook:           {roles: []models.Role{models.RoleAdmin}, owner: true},
	CapPay:            {roles: []models.Role{models.RoleAdmin}, owner: true},
	CapCancel:         {roles: []models.Role{models.RoleAdmin}, owner: true},
	CapRate:           {owner: true},
	CapViewBooking:    {roles: []models.Role{models.RoleAdmin, models.RoleAgent}, owner: true},
	CapViewHistory:    {roles: []models.Role{models.RoleAdmin}, owner: true},
	CapRefund:         {roles: []models.Role{models.RoleAdmin}},
	CapOverrideStatus: {roles: []models.Role{models.RoleAdmin, models.RoleAgent}},
	CapListByStatus:   {roles: []models.Role{models.RoleAdmin, models.RoleAgent}},
	CapListAll:        {roles: []models.Role{models.RoleAdmin}},
	CapViewAnalytics:  {roles: []models.Role{models.RoleAdmin}},
	CapManagePackages: {roles: []models.Role{models.RoleAdmin}},
	CapViewUsers:      {roles: []models.Role{models.RoleAdmin}},
}

// Can checks whether caller holds capability on a resource owned by ownerID.
// Pass an empty ownerID for resources without an owner.
func Can(caller *Caller, capability Capability, ownerID string) error {
	if caller == nil || caller.UserID == "" {
		return domain.Errorf(domain.ErrUnauthenticated, "sign in required")
	}

	r, ok := policy[capability]
	if !ok {
		return domain.Errorf(domain.ErrForbidden, "unknown capability %s", capability)
	}
	if r.owner && ownerID != "" && caller.UserID == ownerID {
		return nil
	}
	for _, role := range r.roles {
		if caller.Role == role {
			return nil
		}
	}
	return domain.Errorf(domain.ErrForbidden, "%s not allowed for role %s", capability, caller.Role)
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller stored in ctx, or nil.
func CallerFrom(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey{}).(*Caller)
	return c
}
