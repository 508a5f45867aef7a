// Package rbac evaluates roles against the permission catalog. Roles are
// named permission sets with a scope; the engine computes the effective
// permission set for a principal in a resolved company context.
package rbac

import (
	"errors"

	"clink-api/internal/apperr"
	"clink-api/internal/catalog"
)

// ErrRoleInUse blocks deletion while principals still reference the
// role. Surfaced as a 400 by the handler, not part of the auth taxonomy.
var ErrRoleInUse = errors.New("cannot delete role that is assigned to users")

// Scope is the breadth of a role's applicability.
type Scope string

const (
	// ScopeGlobal is the platform tier: the role applies across every
	// company, including requests with no company context at all.
	ScopeGlobal Scope = "Global"
	// ScopeCompany roles apply only inside a company the principal is a
	// member of.
	ScopeCompany Scope = "Company"
	// ScopeTeam roles behave like company roles for evaluation; the
	// team subdivision is enforced by the owning handlers.
	ScopeTeam Scope = "Team"
)

// RoleStatus soft-revokes a role without requiring membership cleanup.
type RoleStatus string

const (
	StatusActive     RoleStatus = "Active"
	StatusInactive   RoleStatus = "Inactive"
	StatusDeprecated RoleStatus = "Deprecated"
)

// Role is a named, reusable set of permission codes.
type Role struct {
	ID          string
	Name        string
	Description string
	Scope       Scope
	Status      RoleStatus
	IsSystem    bool
	IsCustom    bool
	Permissions []string
}

// RoleTemplate is a factory bundle of permissions for a common persona.
// Templates are never evaluated at request time, only materialized.
type RoleTemplate struct {
	ID          string
	Name        string
	Description string
	Permissions []string
}

// Membership relates a principal to a company with a membership role tag.
type Membership struct {
	CompanyID string
	Role      string
}

// Principal is the authenticated identity, loaded fresh per request.
type Principal struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	Roles            []Role
	Memberships      []Membership
	BillingCompanyID *string
}

// DisplayName combines first and last name for the auth context.
func (p Principal) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Email
	}
}

// HasGlobalScope reports whether any active role on the principal has
// the Global scope. Status matters here too: a deprecated platform role
// must not keep granting cross-company access.
func (p Principal) HasGlobalScope() bool {
	for _, r := range p.Roles {
		if r.Scope == ScopeGlobal && r.Status == StatusActive {
			return true
		}
	}
	return false
}

// IsMemberOf reports whether the principal has a membership for companyID.
func (p Principal) IsMemberOf(companyID string) bool {
	for _, m := range p.Memberships {
		if m.CompanyID == companyID {
			return true
		}
	}
	return false
}

// PermissionSet is the effective permission codes for one request.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from codes.
func NewPermissionSet(codes ...string) PermissionSet {
	s := make(PermissionSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Has is the single authorization primitive: membership of the exact
// code, no level derivation.
func (s PermissionSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the set contents in unspecified order.
func (s PermissionSet) Codes() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}

// Materialize copies a template's permission set into a new role. The
// result is not persisted here; the caller owns that. Repeat calls with
// the same template yield set-equal roles.
func Materialize(tpl RoleTemplate) Role {
	perms := make([]string, len(tpl.Permissions))
	copy(perms, tpl.Permissions)
	return Role{
		Name:        tpl.Name,
		Description: tpl.Description,
		Scope:       ScopeCompany,
		Status:      StatusActive,
		IsSystem:    false,
		IsCustom:    false,
		Permissions: perms,
	}
}

// EffectivePermissions unions the permission codes of every active role
// on the principal whose scope is compatible with the resolved company.
// Global roles always apply; Company and Team roles apply only when a
// company was resolved and the principal is a member of it. Inactive and
// deprecated roles contribute nothing.
func EffectivePermissions(p Principal, companyID *string) PermissionSet {
	set := make(PermissionSet)
	for _, r := range p.Roles {
		if r.Status != StatusActive {
			continue
		}
		switch r.Scope {
		case ScopeGlobal:
			// always applies
		case ScopeCompany, ScopeTeam:
			if companyID == nil || !p.IsMemberOf(*companyID) {
				continue
			}
		default:
			continue
		}
		for _, code := range r.Permissions {
			set[code] = struct{}{}
		}
	}
	return set
}

// Authorize is a plain membership test on the effective set. Absence of
// the code is the only failure condition.
func Authorize(set PermissionSet, requiredCode string) bool {
	return set.Has(requiredCode)
}

// ValidateCodes rejects permission codes that are not in the catalog.
func ValidateCodes(codes []string) error {
	for _, c := range codes {
		if _, ok := catalog.ByCode(c); !ok {
			return apperr.New(apperr.NotFound, "unknown permission code: "+c)
		}
	}
	return nil
}

// CanModify enforces the system-role invariant for update operations.
func CanModify(r Role) error {
	if r.IsSystem {
		return apperr.New(apperr.Forbidden, "system roles cannot be modified")
	}
	return nil
}

// CanDelete enforces the delete invariants: only custom non-system
// roles, and only while no principal references them.
func CanDelete(r Role, assignedUsers int64) error {
	if r.IsSystem {
		return apperr.New(apperr.Forbidden, "system roles cannot be deleted")
	}
	if !r.IsCustom {
		return apperr.New(apperr.Forbidden, "only custom roles can be deleted")
	}
	if assignedUsers > 0 {
		return ErrRoleInUse
	}
	return nil
}
