// Package catalog is the static permission registry. Permissions are
// defined once here, grouped by module and ranked by access level; the
// database carries references to these codes but never redefines them.
package catalog

// Module groups permissions by the application area they guard.
type Module string

const (
	ModuleUsers     Module = "users"
	ModuleRoles     Module = "roles"
	ModuleCompanies Module = "companies"
	ModulePlans     Module = "plans"
	ModuleBilling   Module = "billing"
	ModuleSettings  Module = "settings"
)

// AccessLevel ranks permissions within a module. The ordering matters
// for display and validation only: a Write code never implies the Read
// code for the same module, each grant is explicit.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
	AccessAdmin
)

func (a AccessLevel) String() string {
	switch a {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	case AccessAdmin:
		return "Admin"
	default:
		return "None"
	}
}

// Permission is an atomic capability identified by a stable code.
type Permission struct {
	Code        string
	Name        string
	Description string
	Module      Module
	AccessLevel AccessLevel
}

// Stable permission codes. Handlers reference these constants rather
// than string literals.
const (
	UsersView      = "users:view"
	UsersCreate    = "users:create"
	UsersEdit      = "users:edit"
	UsersDelete    = "users:delete"
	RolesView      = "roles:view"
	RolesCreate    = "roles:create"
	RolesEdit      = "roles:edit"
	RolesDelete    = "roles:delete"
	CompaniesView  = "companies:view"
	CompaniesCreate = "companies:create"
	CompaniesEdit  = "companies:edit"
	CompaniesDelete = "companies:delete"
	PlansView      = "plans:view"
	PlansManage    = "plans:manage"
	PlansAdmin     = "plans:admin"
	BillingView    = "billing:view"
	BillingManage  = "billing:manage"
	BillingAdmin   = "billing:admin"
	SettingsView   = "settings:view"
	SettingsEdit   = "settings:edit"
	SettingsAdmin  = "settings:admin"
)

var definitions = []Permission{
	{UsersView, "View Users", "View user list and details", ModuleUsers, AccessRead},
	{UsersCreate, "Create Users", "Create new users", ModuleUsers, AccessWrite},
	{UsersEdit, "Edit Users", "Edit user details", ModuleUsers, AccessWrite},
	{UsersDelete, "Delete Users", "Delete users", ModuleUsers, AccessAdmin},

	{RolesView, "View Roles", "View roles and permissions", ModuleRoles, AccessRead},
	{RolesCreate, "Create Roles", "Create new roles", ModuleRoles, AccessWrite},
	{RolesEdit, "Edit Roles", "Edit role details and permissions", ModuleRoles, AccessWrite},
	{RolesDelete, "Delete Roles", "Delete custom roles", ModuleRoles, AccessAdmin},

	{CompaniesView, "View Companies", "View company list and details", ModuleCompanies, AccessRead},
	{CompaniesCreate, "Create Companies", "Create new companies", ModuleCompanies, AccessWrite},
	{CompaniesEdit, "Edit Companies", "Edit company details", ModuleCompanies, AccessWrite},
	{CompaniesDelete, "Delete Companies", "Delete companies", ModuleCompanies, AccessAdmin},

	{PlansView, "View Plans", "View subscription plans", ModulePlans, AccessRead},
	{PlansManage, "Manage Plans", "Select and change the company plan", ModulePlans, AccessWrite},
	{PlansAdmin, "Plans Admin", "Create, edit and delete plans", ModulePlans, AccessAdmin},

	{BillingView, "View Billing", "View billing and subscription details", ModuleBilling, AccessRead},
	{BillingManage, "Manage Billing", "Manage billing and subscriptions", ModuleBilling, AccessWrite},
	{BillingAdmin, "Billing Admin", "Full billing administration", ModuleBilling, AccessAdmin},

	{SettingsView, "View Settings", "View system settings", ModuleSettings, AccessRead},
	{SettingsEdit, "Edit Settings", "Edit system settings", ModuleSettings, AccessWrite},
	{SettingsAdmin, "Settings Admin", "Full settings administration", ModuleSettings, AccessAdmin},
}

var byCode = func() map[string]Permission {
	m := make(map[string]Permission, len(definitions))
	for _, p := range definitions {
		m[p.Code] = p
	}
	return m
}()

// Definitions returns the full catalog in declaration order. The
// returned slice is a copy.
func Definitions() []Permission {
	out := make([]Permission, len(definitions))
	copy(out, definitions)
	return out
}

// ByCode looks up a permission by its stable code.
func ByCode(code string) (Permission, bool) {
	p, ok := byCode[code]
	return p, ok
}

// ByModule returns the permissions declared for a module.
func ByModule(module Module) []Permission {
	var out []Permission
	for _, p := range definitions {
		if p.Module == module {
			out = append(out, p)
		}
	}
	return out
}

// Codes returns every permission code in declaration order.
func Codes() []string {
	out := make([]string, len(definitions))
	for i, p := range definitions {
		out[i] = p.Code
	}
	return out
}
