package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the isolation boundary for all business data. Every
// business-data row elsewhere in the system carries a company id
// foreign key. The active plan selection lives here: a company has at
// most one active plan at a time and changing plans is a replace.
type Company struct {
	ID                 string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name               string         `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	LegalName          string         `json:"legal_name" gorm:"type:varchar(200)"`
	RegistrationNumber string         `json:"registration_number" gorm:"type:varchar(50)"`
	VatNumber          string         `json:"vat_number" gorm:"type:varchar(50)"`
	Status             string         `json:"status" gorm:"type:varchar(20);default:'Active'"`
	PlanID             *string        `json:"plan_id,omitempty" gorm:"type:uuid;index"`
	OwnerID            string         `json:"owner_id" gorm:"type:uuid;index"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Plan *Plan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// UserCompany represents the association between users and companies.
// This enables multi-tenancy by allowing users to belong to multiple
// companies. A (user, company) pair appears at most once.
type UserCompany struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_company"`
	CompanyID string         `json:"company_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_company"`
	Role      string         `json:"role" gorm:"type:varchar(50);not null;default:'member'"` // membership role tag within the company
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User    *User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

func (uc *UserCompany) BeforeCreate(tx *gorm.DB) error {
	if uc.ID == "" {
		uc.ID = uuid.NewString()
	}
	return nil
}
