package model

import "time"

// JoinRecord is one fired auto-open action.
type JoinRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EventID    string    `gorm:"index;size:512;not null" json:"event_id"`
	ExternalID string    `gorm:"size:512" json:"external_id,omitempty"`
	Title      string    `gorm:"size:512" json:"title"`
	URL        string    `gorm:"size:2048;not null" json:"url"`
	StartAt    time.Time `json:"start_at"`
	OpenedAt   time.Time `gorm:"index;not null" json:"opened_at"`
}
