package models

import (
	"time"

	"gorm.io/gorm"
)

// SyncRun records the outcome of one pipeline pass: how many symbols
// succeeded, were skipped, or failed, and the pass-level error if the
// whole pass aborted. Failed passes surface only as stale data to API
// readers, so this history is the main diagnostic trail.
type SyncRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Pass       string    `gorm:"index;size:32" json:"pass"` // profile, minute_bars, daily_indicators
	StartedAt  time.Time `gorm:"index" json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MigrateSyncModels runs database migrations for sync bookkeeping models
func MigrateSyncModels(db *gorm.DB) error {
	return db.AutoMigrate(&SyncRun{})
}
