package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PlayerStatusActive      = "active"
	PlayerStatusReleased    = "released"
	PlayerStatusTransferred = "transferred"
)

// Player is an academy-registered football player. Medical notes are stored
// AES-GCM encrypted at rest (see internal/pkg/security).
type Player struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UUID            string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	AcademyID       uint           `gorm:"not null;index" json:"academy_id"`
	FirstName       string         `gorm:"type:varchar(100);not null" json:"first_name" validate:"required,max=100"`
	LastName        string         `gorm:"type:varchar(100);not null" json:"last_name" validate:"required,max=100"`
	DateOfBirth     time.Time      `gorm:"type:date;not null" json:"date_of_birth" validate:"required"`
	Nationality     string         `gorm:"type:varchar(2);not null" json:"nationality" validate:"required,len=2"`
	Position        string         `gorm:"type:varchar(30);default:''" json:"position"`
	PreferredFoot   string         `gorm:"type:varchar(10);default:''" json:"preferred_foot" validate:"omitempty,oneof=left right both"`
	ShirtNumber     *int           `gorm:"default:null" json:"shirt_number,omitempty"`
	GuardianName    string         `gorm:"type:varchar(200);default:''" json:"guardian_name"`
	GuardianEmail   string         `gorm:"type:varchar(200);default:''" json:"guardian_email" validate:"omitempty,email"`
	PhotoPath       string         `gorm:"type:varchar(255);default:''" json:"photo_path"`
	ThumbnailPath   string         `gorm:"type:varchar(255);default:''" json:"thumbnail_path"`
	MedicalNotesEnc string         `gorm:"type:text" json:"-"`
	Status          string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Player) Validate() error {
	return validator.New().Struct(p)
}

// IsMinor reports whether the player is under 18, which triggers the FIFA
// minor-protection document requirements on transfers.
func (p *Player) IsMinor(at time.Time) bool {
	return p.DateOfBirth.AddDate(18, 0, 0).After(at)
}

// NewPlayer builds a validated player with a fresh public UUID.
func NewPlayer(academyID uint, firstName, lastName string, dateOfBirth time.Time, nationality string) (*Player, error) {
	p := &Player{
		UUID:        uuid.NewString(),
		AcademyID:   academyID,
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dateOfBirth,
		Nationality: nationality,
		Status:      PlayerStatusActive,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
