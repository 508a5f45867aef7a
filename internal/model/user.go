package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the user model stored in the database. Role and
// company associations hang off the join tables; the billing company is
// the default company context for the user.
type User struct {
	ID               string         `json:"id" gorm:"type:uuid;primaryKey"`
	Email            string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password         string         `json:"-" gorm:"type:varchar(255)"`
	FirstName        string         `json:"first_name" gorm:"type:varchar(100)"`
	LastName         string         `json:"last_name" gorm:"type:varchar(100)"`
	Status           string         `json:"status" gorm:"type:varchar(20);default:'Active'"`
	BillingCompanyID *string        `json:"billing_company_id,omitempty" gorm:"type:uuid;index"`
	JoinedAt         time.Time      `json:"joined_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Roles          []UserRole    `json:"roles,omitempty" gorm:"foreignKey:UserID"`
	Companies      []UserCompany `json:"companies,omitempty" gorm:"foreignKey:UserID"`
	BillingCompany *Company      `json:"billing_company,omitempty" gorm:"foreignKey:BillingCompanyID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
