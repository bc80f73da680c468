package projections

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
	"github.com/bdavis/diamond-dfs/internal/estimators"
)

// Role-dependent ceiling/floor multipliers. These are tunable configuration,
// not derived from variance; NewAggregator takes overrides so deployments
// can adjust them without touching the combination logic.
const (
	BatterCeilingMult  = 1.5
	BatterFloorMult    = 0.5
	PitcherCeilingMult = 1.2
	PitcherFloorMult   = 0.75

	DefaultEstimatorTimeout = 5 * time.Second
)

// Multipliers holds the floor/ceiling multipliers per role.
type Multipliers struct {
	BatterCeiling  float64
	BatterFloor    float64
	PitcherCeiling float64
	PitcherFloor   float64
}

// DefaultMultipliers returns the stock multiplier set.
func DefaultMultipliers() Multipliers {
	return Multipliers{
		BatterCeiling:  BatterCeilingMult,
		BatterFloor:    BatterFloorMult,
		PitcherCeiling: PitcherCeilingMult,
		PitcherFloor:   PitcherFloorMult,
	}
}

// EstimatorSource yields the estimators applicable to a role. estimators.Set
// is the production implementation.
type EstimatorSource interface {
	ForRole(role dfs.Role) []estimators.Estimator
}

// Aggregator fans a player out to every applicable category estimator
// concurrently and combines the results into one scored projection. Each
// estimator call is individually wrapped: on error or timeout its category
// default is substituted (tagged as a fallback) and the remaining categories
// are unaffected. The combination step is commutative over category order,
// so completion order never changes the result.
type Aggregator struct {
	set              EstimatorSource
	multipliers      Multipliers
	estimatorTimeout time.Duration
	logger           *logrus.Logger
}

func NewAggregator(set EstimatorSource, multipliers Multipliers, estimatorTimeout time.Duration, logger *logrus.Logger) *Aggregator {
	if estimatorTimeout <= 0 {
		estimatorTimeout = DefaultEstimatorTimeout
	}
	return &Aggregator{
		set:              set,
		multipliers:      multipliers,
		estimatorTimeout: estimatorTimeout,
		logger:           logger,
	}
}

// Project computes the aggregated projection for one player in one game.
// It never returns an error: total estimator failure produces an all-default
// projection with low confidence, per the partial-failure policy.
func (a *Aggregator) Project(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) dfs.ProjectionResult {
	applicable := a.set.ForRole(player.Role)

	var wg sync.WaitGroup
	results := make(chan dfs.CategoryResult, len(applicable))

	for _, est := range applicable {
		wg.Add(1)
		go func(est estimators.Estimator) {
			defer wg.Done()
			results <- a.runEstimator(ctx, est, player, game)
		}(est)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	perCategory := make(map[string]dfs.CategoryResult, len(applicable))
	for result := range results {
		perCategory[result.Category] = result
	}

	return a.combine(player, perCategory)
}

// runEstimator invokes one estimator with its own timeout and recovers any
// failure by substituting the category default.
func (a *Aggregator) runEstimator(ctx context.Context, est estimators.Estimator, player dfs.ResolvedPlayer, game dfs.GameContext) dfs.CategoryResult {
	category := est.Category()

	estCtx, cancel := context.WithTimeout(ctx, a.estimatorTimeout)
	defer cancel()

	type outcome struct {
		estimate dfs.CategoryEstimate
		err      error
	}
	done := make(chan outcome, 1)

	go func() {
		estimate, err := est.Estimate(estCtx, player, game)
		done <- outcome{estimate: estimate, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			a.logger.WithFields(logrus.Fields{
				"component":    "projection_aggregator",
				"category":     category,
				"canonical_id": player.CanonicalID,
			}).WithError(out.err).Debug("Estimator failed, using category default")
			return dfs.CategoryResult{
				Category: category,
				Estimate: estimators.Default(category),
				Fallback: true,
				Reason:   out.err.Error(),
			}
		}
		return dfs.CategoryResult{Category: category, Estimate: out.estimate}
	case <-estCtx.Done():
		// Timed out or the surrounding run was cancelled. The goroutine is
		// abandoned; the buffered channel lets it finish without blocking.
		return dfs.CategoryResult{
			Category: category,
			Estimate: estimators.Default(category),
			Fallback: true,
			Reason:   fmt.Sprintf("estimator timed out: %v", estCtx.Err()),
		}
	}
}

// combine applies the combination rule: points and expected values are sums
// over categories, confidence is a points-weighted blend clamped to [0,100],
// and floor/ceiling come from the role multipliers with a zero clamp on the
// presented floor (the pre-clamp value is kept for diagnostics).
func (a *Aggregator) combine(player dfs.ResolvedPlayer, perCategory map[string]dfs.CategoryResult) dfs.ProjectionResult {
	var totalPoints, totalExpected, weightedConfidence float64

	for _, result := range perCategory {
		totalPoints += result.Estimate.Points
		totalExpected += result.Estimate.Expected
		weightedConfidence += result.Estimate.Confidence * result.Estimate.Points
	}

	confidence := 0.0
	if totalPoints != 0 {
		confidence = weightedConfidence / totalPoints
	}
	confidence = math.Max(0, math.Min(100, confidence))

	ceilingMult, floorMult := a.multipliers.BatterCeiling, a.multipliers.BatterFloor
	if player.Role == dfs.RolePitcher {
		ceilingMult, floorMult = a.multipliers.PitcherCeiling, a.multipliers.PitcherFloor
	}

	rawFloor := totalPoints * floorMult
	floor := math.Max(0, rawFloor)
	ceiling := math.Max(0, totalPoints*ceilingMult)

	// A net-negative projection (possible for pitchers) still presents a
	// coherent band: clamp so floor <= points <= ceiling holds.
	points := math.Max(0, totalPoints)
	if floor > points {
		floor = points
	}
	if ceiling < points {
		ceiling = points
	}

	return dfs.ProjectionResult{
		CanonicalID: player.CanonicalID,
		DisplayName: player.DisplayName,
		Provisional: player.Provisional,
		Role:        player.Role,
		PerCategory: perCategory,
		Expected:    totalExpected,
		Points:      points,
		Floor:       floor,
		Ceiling:     ceiling,
		RawFloor:    rawFloor,
		Confidence:  confidence,
		GeneratedAt: time.Now().UTC(),
	}
}
