package store

import (
	"context"
	"fmt"

	"clink-api/internal/apperr"
	"clink-api/internal/catalog"
	"clink-api/internal/model"
	"clink-api/internal/rbac"
)

// systemRoles are created on startup so a fresh database always carries
// the roles registration and administration depend on. The Super
// Administrator is the only global-scope role shipped by default.
var systemRoles = []struct {
	name        string
	description string
	scope       rbac.Scope
	codes       []string
}{
	{
		name:        "Super Administrator",
		description: "Full platform access across all companies",
		scope:       rbac.ScopeGlobal,
		codes:       catalog.Codes(),
	},
	{
		name:        "Company Administrator",
		description: "Company-wide administrative access",
		scope:       rbac.ScopeCompany,
		codes: []string{
			catalog.UsersView, catalog.UsersCreate, catalog.UsersEdit, catalog.UsersDelete,
			catalog.RolesView, catalog.RolesCreate, catalog.RolesEdit,
			catalog.CompaniesView, catalog.CompaniesCreate, catalog.CompaniesEdit,
			catalog.PlansView, catalog.PlansManage,
			catalog.BillingView, catalog.BillingManage,
			catalog.SettingsView, catalog.SettingsEdit, catalog.SettingsAdmin,
		},
	},
	{
		name:        "Billing Administrator",
		description: "Manage billing, subscriptions, and payments",
		scope:       rbac.ScopeCompany,
		codes: []string{
			catalog.BillingView, catalog.BillingManage, catalog.BillingAdmin,
			catalog.PlansView, catalog.PlansManage,
			catalog.UsersView,
		},
	},
	{
		name:        "User Manager",
		description: "Manage user accounts and permissions",
		scope:       rbac.ScopeCompany,
		codes: []string{
			catalog.UsersView, catalog.UsersCreate, catalog.UsersEdit, catalog.UsersDelete,
			catalog.RolesView,
		},
	},
	{
		name:        "Viewer",
		description: "Read-only access",
		scope:       rbac.ScopeCompany,
		codes: []string{
			catalog.UsersView, catalog.RolesView, catalog.CompaniesView,
			catalog.PlansView, catalog.BillingView, catalog.SettingsView,
		},
	},
}

// SeedSystemRoles creates the built-in system roles if they do not
// exist yet. Existing roles are left untouched, so operator edits to
// descriptions survive restarts.
func (s *Store) SeedSystemRoles(ctx context.Context) error {
	for _, sr := range systemRoles {
		existing, err := s.GetRoleByName(ctx, sr.name)
		if err != nil && !apperr.Is(err, apperr.NotFound) {
			return fmt.Errorf("seed role %q: %w", sr.name, err)
		}
		if existing != nil {
			continue
		}

		role := model.Role{
			Name:        sr.name,
			Description: sr.description,
			Scope:       string(sr.scope),
			Status:      string(rbac.StatusActive),
			IsSystem:    true,
			IsCustom:    false,
		}
		if err := s.CreateRole(ctx, &role, sr.codes); err != nil {
			return fmt.Errorf("seed role %q: %w", sr.name, err)
		}
	}
	return nil
}
