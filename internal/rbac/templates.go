package rbac

import "clink-api/internal/catalog"

// Built-in role templates: persona bundles used as factory input when
// an administrator creates a role from a template. Templates are never
// attached to a principal directly.
var templates = []RoleTemplate{
	{
		ID:          "tpl-company-administrator",
		Name:        "Company Administrator",
		Description: "Company-wide administrative access",
		Permissions: []string{
			catalog.UsersView, catalog.UsersCreate, catalog.UsersEdit, catalog.UsersDelete,
			catalog.RolesView, catalog.RolesCreate, catalog.RolesEdit,
			catalog.CompaniesView, catalog.CompaniesCreate, catalog.CompaniesEdit,
			catalog.PlansView, catalog.PlansManage,
			catalog.BillingView, catalog.BillingManage,
			catalog.SettingsView, catalog.SettingsEdit, catalog.SettingsAdmin,
		},
	},
	{
		ID:          "tpl-billing-administrator",
		Name:        "Billing Administrator",
		Description: "Manage billing, subscriptions, and payments",
		Permissions: []string{
			catalog.BillingView, catalog.BillingManage, catalog.BillingAdmin,
			catalog.PlansView, catalog.PlansManage,
			catalog.UsersView,
		},
	},
	{
		ID:          "tpl-user-manager",
		Name:        "User Manager",
		Description: "Manage user accounts and permissions",
		Permissions: []string{
			catalog.UsersView, catalog.UsersCreate, catalog.UsersEdit, catalog.UsersDelete,
			catalog.RolesView,
		},
	},
	{
		ID:          "tpl-viewer",
		Name:        "Viewer",
		Description: "Read-only access",
		Permissions: []string{
			catalog.UsersView, catalog.RolesView, catalog.CompaniesView,
			catalog.PlansView, catalog.BillingView, catalog.SettingsView,
		},
	},
}

// Templates returns the built-in role templates.
func Templates() []RoleTemplate {
	out := make([]RoleTemplate, len(templates))
	copy(out, templates)
	return out
}

// TemplateByID looks up a built-in template.
func TemplateByID(id string) (RoleTemplate, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return RoleTemplate{}, false
}
