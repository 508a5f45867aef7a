package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan is a subscription tier. MaxUsers and MaxCompanies are -1 for
// unlimited or a non-negative integer; features are free-form strings
// gated by verbatim membership.
type Plan struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string         `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	Description  string         `json:"description" gorm:"type:text"`
	Price        float64        `json:"price"`
	BillingCycle string         `json:"billing_cycle" gorm:"type:varchar(20);default:'monthly'"`
	Features     []string       `json:"features" gorm:"serializer:json"`
	MaxUsers     int            `json:"max_users" gorm:"default:0"`
	MaxCompanies int            `json:"max_companies" gorm:"default:0"`
	Status       string         `json:"status" gorm:"type:varchar(20);default:'Active'"`
	IsCustom     bool           `json:"is_custom" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
