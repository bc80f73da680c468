package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlayerIdentity is the persisted form of an identity-registry record.
// Canonical IDs from the stats provider are positive; provisional rows
// created for unresolved salary names are negative.
type PlayerIdentity struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CanonicalID    int64          `gorm:"uniqueIndex;not null" json:"canonical_id"`
	DisplayName    string         `gorm:"not null" json:"display_name"`
	NormalizedName string         `gorm:"index" json:"normalized_name"`
	Position       string         `json:"position"`
	TeamID         int64          `json:"team_id"`
	Active         bool           `gorm:"default:true" json:"active"`
	Provisional    bool           `gorm:"default:false" json:"provisional"`
	Aliases        datatypes.JSON `json:"aliases,omitempty"` // raw-name variants seen for this identity
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlayerIdentity) TableName() string {
	return "player_identities"
}
