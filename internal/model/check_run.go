package model

import "time"

// CheckRun is one archived check cycle (cold table). The JSON snapshot
// file holds only the latest state; this table keeps the long history
// the API serves.
type CheckRun struct {
	ID           int64     `gorm:"autoIncrement;primaryKey" json:"id"`
	StartedAt    time.Time `gorm:"not null;index" json:"started_at"`
	Source       string    `gorm:"size:32;not null" json:"source"`
	SlotCount    int       `gorm:"not null" json:"slot_count"`
	NewCount     int       `gorm:"not null" json:"new_count"`
	RemovedCount int       `gorm:"not null" json:"removed_count"`
	Notified     bool      `gorm:"not null" json:"notified"`
}
