package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a named set of permission codes with a scope. System roles
// are seeded and immutable; only custom roles may be edited or deleted.
// Permission definitions themselves live in the static catalog, the
// database only stores the code references.
type Role struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	Description string         `json:"description" gorm:"type:text"`
	Scope       string         `json:"scope" gorm:"type:varchar(20);default:'Company'"`
	Status      string         `json:"status" gorm:"type:varchar(20);default:'Active'"`
	IsSystem    bool           `json:"is_system" gorm:"default:false"`
	IsCustom    bool           `json:"is_custom" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Permissions []RolePermission `json:"permissions,omitempty" gorm:"foreignKey:RoleID"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// PermissionCodes flattens the join rows to the code list the engine
// evaluates.
func (r *Role) PermissionCodes() []string {
	codes := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		codes[i] = p.PermissionCode
	}
	return codes
}

// RolePermission links a role to one permission code from the catalog.
type RolePermission struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	RoleID         string    `json:"role_id" gorm:"type:uuid;not null;uniqueIndex:idx_role_permission"`
	PermissionCode string    `json:"permission_code" gorm:"type:varchar(100);not null;uniqueIndex:idx_role_permission"`
	CreatedAt      time.Time `json:"created_at"`
}

func (rp *RolePermission) BeforeCreate(tx *gorm.DB) error {
	if rp.ID == "" {
		rp.ID = uuid.NewString()
	}
	return nil
}

// UserRole attaches a role to a user. Attachment order is preserved via
// AssignedAt so the principal's role list is stable.
type UserRole struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     string    `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_role"`
	RoleID     string    `json:"role_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_role"`
	AssignedAt time.Time `json:"assigned_at"`

	// Relations
	Role Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

func (ur *UserRole) BeforeCreate(tx *gorm.DB) error {
	if ur.ID == "" {
		ur.ID = uuid.NewString()
	}
	if ur.AssignedAt.IsZero() {
		ur.AssignedAt = time.Now()
	}
	return nil
}
