package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransferStatusDraft     = "DRAFT"
	TransferStatusSubmitted = "SUBMITTED"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusRejected  = "REJECTED"

	TransferDirectionIn  = "in"
	TransferDirectionOut = "out"
)

// Transfer records a player moving into or out of the academy, with the
// agreed fee and the compliance documents attached to it.
type Transfer struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UUID                string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	AcademyID           uint       `gorm:"not null;index" json:"academy_id"`
	PlayerID            uint       `gorm:"not null;index" json:"player_id"`
	Direction           string     `gorm:"type:varchar(3);not null" json:"direction"`
	CounterpartyClub    string     `gorm:"type:varchar(200);not null" json:"counterparty_club"`
	CounterpartyCountry string     `gorm:"type:varchar(2);not null" json:"counterparty_country"`
	FeeCents            int64      `gorm:"not null;default:0" json:"fee_cents"`
	Currency            string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status              string     `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	RejectionReason     string     `gorm:"type:varchar(255);default:''" json:"rejection_reason,omitempty"`
	AgreedAt            *time.Time `gorm:"type:timestamp;default:null" json:"agreed_at,omitempty"`
	CompletedAt         *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanTransitionTransfer reports whether the transfer workflow allows the move.
func CanTransitionTransfer(from, to string) bool {
	switch from {
	case TransferStatusDraft:
		return to == TransferStatusSubmitted
	case TransferStatusSubmitted:
		return to == TransferStatusCompleted || to == TransferStatusRejected
	default:
		return false
	}
}

// NewTransfer builds a draft transfer with a fresh public UUID.
func NewTransfer(academyID, playerID uint, direction, club, country string, feeCents int64, currency string) *Transfer {
	return &Transfer{
		UUID:                uuid.NewString(),
		AcademyID:           academyID,
		PlayerID:            playerID,
		Direction:           direction,
		CounterpartyClub:    club,
		CounterpartyCountry: country,
		FeeCents:            feeCents,
		Currency:            currency,
		Status:              TransferStatusDraft,
	}
}
