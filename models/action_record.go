package models

import "time"

// ActionRecord statuses
const (
	ActionStatusCompleted = "completed"
	ActionStatusFailed    = "failed"
)

// ActionRecord is one append-only ledger entry for a dispatch attempt.
// The composite unique index is the per-day idempotency key: a lead is
// contacted at most once per campaign day per action type, regardless of
// the outcome of the attempt.
type ActionRecord struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CampaignID uint      `gorm:"not null;uniqueIndex:idx_action_records_key,priority:1" json:"campaign_id"`
	LeadID     uint      `gorm:"not null;uniqueIndex:idx_action_records_key,priority:2" json:"lead_id"`
	DayNumber  int       `gorm:"not null;uniqueIndex:idx_action_records_key,priority:3" json:"day_number"`
	ActionType string    `gorm:"size:16;not null;uniqueIndex:idx_action_records_key,priority:4" json:"action_type"`
	Status     string    `gorm:"size:16;not null" json:"status"` // completed, failed
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
