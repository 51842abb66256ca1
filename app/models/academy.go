package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AcademyStatusActive    = "active"
	AcademyStatusSuspended = "suspended"
)

// Academy is the tenant root. Every player, transfer, document, ledger entry
// and subscription belongs to exactly one academy.
type Academy struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UUID               string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	Name               string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=3,max=200"`
	Country            string         `gorm:"type:varchar(2);not null;index" json:"country" validate:"required,len=2"`
	City               string         `gorm:"type:varchar(100)" json:"city" validate:"max=100"`
	ContactEmail       string         `gorm:"type:varchar(200);not null" json:"contact_email" validate:"required,email"`
	FIFAOrgID          string         `gorm:"type:varchar(32);default:''" json:"fifa_org_id"`
	ProviderCustomerID *string        `gorm:"type:varchar(191);uniqueIndex;default:null" json:"-"`
	Status             string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Academy) Validate() error {
	return validator.New().Struct(a)
}

// IsBillingConfigured reports whether the academy has a linked billing
// provider customer. Academies without one are skipped by reconciliation.
func (a *Academy) IsBillingConfigured() bool {
	return a.ProviderCustomerID != nil && *a.ProviderCustomerID != ""
}

// NewAcademy builds a validated academy with a fresh public UUID.
func NewAcademy(name, country, city, contactEmail string) (*Academy, error) {
	a := &Academy{
		UUID:         uuid.NewString(),
		Name:         name,
		Country:      country,
		City:         city,
		ContactEmail: contactEmail,
		Status:       AcademyStatusActive,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
