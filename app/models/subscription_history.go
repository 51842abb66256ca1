package models

import (
	"encoding/json"
	"time"
)

// History action tags. The SYNCED_* tags are written exclusively by the
// reconciliation service.
const (
	HistoryActionSyncedCreate    = "SYNCED_CREATE"
	HistoryActionSyncedUpdate    = "SYNCED_UPDATE"
	HistoryActionUpgraded        = "UPGRADED"
	HistoryActionCancelled       = "CANCELLED"
	HistoryActionRenewed         = "RENEWED"
	HistoryActionPaymentRecorded = "PAYMENT_RECORDED"
)

// SubscriptionHistory is an append-only audit record of a subscription state
// change. Rows are never updated or deleted.
type SubscriptionHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID uint      `gorm:"not null;index" json:"subscription_id"`
	Action         string    `gorm:"type:varchar(32);not null;index" json:"action"`
	PayloadJSON    string    `gorm:"type:longtext" json:"payload_json"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// NewHistoryEntry marshals the payload snapshot and builds an audit row.
func NewHistoryEntry(subscriptionID uint, action string, payload any) (*SubscriptionHistory, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &SubscriptionHistory{
		SubscriptionID: subscriptionID,
		Action:         action,
		PayloadJSON:    string(raw),
	}, nil
}
