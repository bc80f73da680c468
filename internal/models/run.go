package models

import (
	"time"
)

// ProjectionRun records bookkeeping for one slate collection run.
type ProjectionRun struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RunID            string    `gorm:"uniqueIndex;not null" json:"run_id"`
	SlateDate        string    `gorm:"index;not null" json:"slate_date"`
	PlayersTotal     int       `json:"players_total"`
	PlayersProjected int       `json:"players_projected"`
	PlayersFailed    int       `json:"players_failed"`
	Provisional      int       `json:"provisional"` // identities fabricated during this run
	FallbackRatio    float64   `json:"fallback_ratio"`
	Status           string    `gorm:"not null" json:"status"` // "running", "completed", "cancelled", "failed"
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ProjectionRun) TableName() string {
	return "projection_runs"
}
