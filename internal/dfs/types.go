package dfs

import (
	"context"
	"time"
)

// Role distinguishes which estimator set applies to a player.
type Role string

const (
	RoleBatter  Role = "batter"
	RolePitcher Role = "pitcher"
)

// RoleForPosition maps a salary-feed position string to a Role.
// Pitchers are listed as P/SP/RP on every major slate export.
func RoleForPosition(position string) Role {
	switch position {
	case "P", "SP", "RP":
		return RolePitcher
	default:
		return RoleBatter
	}
}

// SalaryEntry is one record from the contest salary export. Players are
// identified only by free-text name; resolution joins them to a canonical
// identity.
type SalaryEntry struct {
	SourceID         string  `json:"source_id"`
	RawName          string  `json:"raw_name"`
	Position         string  `json:"position"`
	Salary           int     `json:"salary"`
	TeamAbbrev       string  `json:"team_abbrev"`
	AvgPointsPerGame float64 `json:"avg_points_per_game"`
}

// ResolvedPlayer joins a salary entry with its canonical identity.
type ResolvedPlayer struct {
	CanonicalID int64       `json:"canonical_id"`
	DisplayName string      `json:"display_name"`
	Provisional bool        `json:"provisional"`
	Role        Role        `json:"role"`
	Entry       SalaryEntry `json:"entry"`
}

// StatBundle carries one season of per-player statistics from the provider.
type StatBundle struct {
	PlayerID int64              `json:"player_id"`
	Season   int                `json:"season"`
	Games    int                `json:"games"`
	Stats    map[string]float64 `json:"stats"`
}

// SeasonStatBundle is a season-tagged bundle within a career history.
type SeasonStatBundle struct {
	Season int        `json:"season"`
	Bundle StatBundle `json:"bundle"`
}

// MatchupStatBundle carries batter-vs-pitcher history.
type MatchupStatBundle struct {
	BatterID         int64              `json:"batter_id"`
	PitcherID        int64              `json:"pitcher_id"`
	PlateAppearances int                `json:"plate_appearances"`
	Stats            map[string]float64 `json:"stats"`
}

// GameContext describes the single game a projection is computed for.
type GameContext struct {
	GameID          string    `json:"game_id"`
	Date            time.Time `json:"date"`
	Season          int       `json:"season"`
	HomeTeam        string    `json:"home_team"`
	AwayTeam        string    `json:"away_team"`
	OpponentPitcher int64     `json:"opponent_pitcher"`
	OpponentTeam    string    `json:"opponent_team"`
	ParkFactor      float64   `json:"park_factor"`
	WindSpeedMPH    float64   `json:"wind_speed_mph"`
	TemperatureF    float64   `json:"temperature_f"`
}

// CategoryEstimate is the output of a single category estimator.
type CategoryEstimate struct {
	Expected   float64 `json:"expected"`
	Points     float64 `json:"points"`
	Confidence float64 `json:"confidence"` // 0-100
}

// CategoryResult tags an estimate with whether it is a real estimator output
// or a substituted fallback default, so the aggregator and diagnostics can
// tell the two apart.
type CategoryResult struct {
	Category string           `json:"category"`
	Estimate CategoryEstimate `json:"estimate"`
	Fallback bool             `json:"fallback"`
	Reason   string           `json:"reason,omitempty"`
}

// ProjectionResult is the aggregated projection for one player in one game.
// Invariant: Floor <= Points <= Ceiling and Confidence in [0,100].
type ProjectionResult struct {
	CanonicalID int64                     `json:"canonical_id"`
	DisplayName string                    `json:"display_name"`
	Provisional bool                      `json:"provisional"`
	Role        Role                      `json:"role"`
	PerCategory map[string]CategoryResult `json:"per_category"`
	Expected    float64                   `json:"expected"`
	Points      float64                   `json:"points"`
	Floor       float64                   `json:"floor"`
	Ceiling     float64                   `json:"ceiling"`
	RawFloor    float64                   `json:"raw_floor"` // pre-clamp floor, kept for diagnostics
	Confidence  float64                   `json:"confidence"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// StatsProvider is the interface to the external statistics source.
type StatsProvider interface {
	GetSeasonStats(ctx context.Context, playerID int64, season int) (*StatBundle, error)
	GetCareerStats(ctx context.Context, playerID int64) ([]SeasonStatBundle, error)
	GetMatchupHistory(ctx context.Context, batterID, pitcherID int64) (*MatchupStatBundle, error)
}

// SalaryProvider is the interface to the contest salary export.
type SalaryProvider interface {
	GetSalaries(date string) ([]SalaryEntry, error)
}

// CacheProvider interface for cache operations
type CacheProvider interface {
	SetSimple(key string, value interface{}, expiration time.Duration) error
	GetSimple(key string, dest interface{}) error
}
