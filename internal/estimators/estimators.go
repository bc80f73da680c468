package estimators

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
)

// Scoring category names. Batter and pitcher sets are disjoint; the
// aggregator picks the applicable set from the player's role.
const (
	CategoryHits        = "hits"
	CategoryHomeRuns    = "home_runs"
	CategoryStolenBases = "stolen_bases"
	CategoryRuns        = "runs"
	CategoryRBIs        = "rbis"
	CategoryWalksHBP    = "walks_hbp"

	CategoryStrikeouts      = "strikeouts"
	CategoryInnings         = "innings"
	CategoryWinProbability  = "win_probability"
	CategoryHitsRunsAllowed = "hits_runs_allowed"
	CategoryRareEvents      = "rare_events"
)

// Estimator produces an expected value, fantasy points, and a confidence
// score for one scoring category for one player in one game context. Each
// estimator is independent: its failure is recovered by the aggregator with
// the category default and never invalidates the other categories.
type Estimator interface {
	Category() string
	Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error)
}

// defaults holds the conservative, roughly league-average estimate
// substituted when a category estimator fails or times out. Confidence is
// deliberately low so fallback-heavy projections are visibly weaker.
var defaults = map[string]dfs.CategoryEstimate{
	CategoryHits:        {Expected: 0.9, Points: 3.2, Confidence: 25},
	CategoryHomeRuns:    {Expected: 0.12, Points: 1.2, Confidence: 25},
	CategoryStolenBases: {Expected: 0.06, Points: 0.3, Confidence: 25},
	CategoryRuns:        {Expected: 0.5, Points: 1.0, Confidence: 25},
	CategoryRBIs:        {Expected: 0.5, Points: 1.0, Confidence: 25},
	CategoryWalksHBP:    {Expected: 0.35, Points: 0.7, Confidence: 25},

	CategoryStrikeouts:      {Expected: 5.5, Points: 11.0, Confidence: 25},
	CategoryInnings:         {Expected: 5.3, Points: 11.9, Confidence: 25},
	CategoryWinProbability:  {Expected: 0.5, Points: 2.0, Confidence: 25},
	CategoryHitsRunsAllowed: {Expected: 7.8, Points: -8.4, Confidence: 25},
	CategoryRareEvents:      {Expected: 0.02, Points: 0.1, Confidence: 25},
}

// Default returns the fallback estimate for a category. Unknown categories
// get a zero estimate with zero confidence.
func Default(category string) dfs.CategoryEstimate {
	if est, ok := defaults[category]; ok {
		return est
	}
	return dfs.CategoryEstimate{}
}

// Set holds the full estimator collection, keyed by role.
type Set struct {
	batter  []Estimator
	pitcher []Estimator
}

// NewSet builds the estimator set on top of a stats provider.
func NewSet(stats dfs.StatsProvider, logger *logrus.Logger) *Set {
	return &Set{
		batter: []Estimator{
			&HitsEstimator{stats: stats, logger: logger},
			&HomeRunsEstimator{stats: stats, logger: logger},
			&StolenBasesEstimator{stats: stats, logger: logger},
			&RunsEstimator{stats: stats, logger: logger},
			&RBIsEstimator{stats: stats, logger: logger},
			&WalksHBPEstimator{stats: stats, logger: logger},
		},
		pitcher: []Estimator{
			&StrikeoutsEstimator{stats: stats, logger: logger},
			&InningsEstimator{stats: stats, logger: logger},
			&WinProbabilityEstimator{stats: stats, logger: logger},
			&HitsRunsAllowedEstimator{stats: stats, logger: logger},
			&RareEventsEstimator{stats: stats, logger: logger},
		},
	}
}

// ForRole returns the estimators applicable to a player's role.
func (s *Set) ForRole(role dfs.Role) []Estimator {
	if role == dfs.RolePitcher {
		return s.pitcher
	}
	return s.batter
}
