package model

import "time"

// SettingsRowID is the primary key of the single settings row.
const SettingsRowID = 1

// Settings holds the user preferences the scheduler re-reads on every tick.
type Settings struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	MinutesBefore        int       `gorm:"not null" json:"minutes_before"`
	TrayCountdownMinutes int       `gorm:"not null" json:"tray_countdown_minutes"` // 0 = always show
	StartAtLogin         bool      `gorm:"not null" json:"start_at_login"`
	UpdatedAt            time.Time `json:"updated_at"`
}
