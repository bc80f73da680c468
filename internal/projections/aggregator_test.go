package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdavis/diamond-dfs/internal/dfs"
	"github.com/bdavis/diamond-dfs/internal/estimators"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// stubStats is a StatsProvider with canned responses.
type stubStats struct {
	bundle    *dfs.StatBundle
	seasonErr error
	delay     time.Duration
}

func (s *stubStats) GetSeasonStats(ctx context.Context, playerID int64, season int) (*dfs.StatBundle, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.seasonErr != nil {
		return nil, s.seasonErr
	}
	return s.bundle, nil
}

func (s *stubStats) GetCareerStats(ctx context.Context, playerID int64) ([]dfs.SeasonStatBundle, error) {
	return nil, errors.New("no career data")
}

func (s *stubStats) GetMatchupHistory(ctx context.Context, batterID, pitcherID int64) (*dfs.MatchupStatBundle, error) {
	return nil, errors.New("no matchup data")
}

// stubEstimator returns a fixed estimate or error for one category.
type stubEstimator struct {
	category string
	estimate dfs.CategoryEstimate
	err      error
	block    bool
}

func (e *stubEstimator) Category() string { return e.category }

func (e *stubEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	if e.block {
		<-ctx.Done()
		return dfs.CategoryEstimate{}, ctx.Err()
	}
	return e.estimate, e.err
}

func batterPlayer() dfs.ResolvedPlayer {
	return dfs.ResolvedPlayer{
		CanonicalID: 545361,
		DisplayName: "Mike Trout",
		Role:        dfs.RoleBatter,
	}
}

func pitcherPlayer() dfs.ResolvedPlayer {
	return dfs.ResolvedPlayer{
		CanonicalID: 543037,
		DisplayName: "Gerrit Cole",
		Role:        dfs.RolePitcher,
	}
}

func batterBundle() *dfs.StatBundle {
	return &dfs.StatBundle{
		PlayerID: 545361,
		Games:    100,
		Stats: map[string]float64{
			"hits":        150,
			"doubles":     30,
			"triples":     5,
			"homeRuns":    25,
			"stolenBases": 10,
			"runs":        90,
			"rbi":         80,
			"baseOnBalls": 60,
			"hitByPitch":  5,
		},
	}
}

func pitcherBundle() *dfs.StatBundle {
	return &dfs.StatBundle{
		PlayerID: 543037,
		Games:    30,
		Stats: map[string]float64{
			"strikeOuts":     180,
			"inningsPitched": 180,
			"wins":           15,
			"hits":           150,
			"baseOnBalls":    45,
			"earnedRuns":     60,
			"completeGames":  1,
			"shutouts":       0,
		},
	}
}

func assertBandInvariants(t *testing.T, result dfs.ProjectionResult) {
	t.Helper()
	assert.GreaterOrEqual(t, result.Floor, 0.0)
	assert.LessOrEqual(t, result.Floor, result.Points)
	assert.LessOrEqual(t, result.Points, result.Ceiling)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 100.0)
}

func TestProjectBatter(t *testing.T) {
	set := estimators.NewSet(&stubStats{bundle: batterBundle()}, testLogger())
	agg := NewAggregator(set, DefaultMultipliers(), time.Second, testLogger())

	result := agg.Project(context.Background(), batterPlayer(), dfs.GameContext{Season: 2026, ParkFactor: 1.0})

	require.Len(t, result.PerCategory, 6)
	for category, cat := range result.PerCategory {
		assert.False(t, cat.Fallback, "category %s should not fall back", category)
	}

	// 4.6 hits + 2.5 HR + 0.5 SB + 1.8 R + 1.6 RBI + 1.3 BB/HBP
	assert.InDelta(t, 12.3, result.Points, 1e-9)
	assert.InDelta(t, 6.15, result.Floor, 1e-9)
	assert.InDelta(t, 18.45, result.Ceiling, 1e-9)
	assertBandInvariants(t, result)
}

func TestProjectPitcher(t *testing.T) {
	set := estimators.NewSet(&stubStats{bundle: pitcherBundle()}, testLogger())
	agg := NewAggregator(set, DefaultMultipliers(), time.Second, testLogger())

	result := agg.Project(context.Background(), pitcherPlayer(), dfs.GameContext{Season: 2026, ParkFactor: 1.0})

	require.Len(t, result.PerCategory, 5)

	// Hits/runs allowed is a legitimately negative contribution.
	hra := result.PerCategory[estimators.CategoryHitsRunsAllowed]
	assert.False(t, hra.Fallback)
	assert.Negative(t, hra.Estimate.Points)

	assert.Positive(t, result.Points)
	assertBandInvariants(t, result)
}

func TestProjectProviderFailureFallsBackEverywhere(t *testing.T) {
	set := estimators.NewSet(&stubStats{seasonErr: errors.New("upstream down")}, testLogger())
	agg := NewAggregator(set, DefaultMultipliers(), time.Second, testLogger())

	result := agg.Project(context.Background(), batterPlayer(), dfs.GameContext{Season: 2026})

	require.Len(t, result.PerCategory, 6)
	for category, cat := range result.PerCategory {
		assert.True(t, cat.Fallback, "category %s should fall back", category)
		assert.NotEmpty(t, cat.Reason)
		assert.Equal(t, estimators.Default(category), cat.Estimate)
	}

	// Every default carries low confidence, so the blend lands there too.
	assert.InDelta(t, 25.0, result.Confidence, 1e-9)
	assertBandInvariants(t, result)
}

func TestProjectProvisionalPlayer(t *testing.T) {
	set := estimators.NewSet(&stubStats{bundle: batterBundle()}, testLogger())
	agg := NewAggregator(set, DefaultMultipliers(), time.Second, testLogger())

	player := dfs.ResolvedPlayer{
		CanonicalID: -9001,
		DisplayName: "Zzyzx Player",
		Provisional: true,
		Role:        dfs.RoleBatter,
	}
	result := agg.Project(context.Background(), player, dfs.GameContext{Season: 2026})

	// Provisional identities have no provider record, so every category is a
	// substituted default.
	assert.True(t, result.Provisional)
	for category, cat := range result.PerCategory {
		assert.True(t, cat.Fallback, "category %s should fall back", category)
	}
	assertBandInvariants(t, result)
}

func TestProjectEstimatorTimeout(t *testing.T) {
	set := estimators.NewSet(&stubStats{bundle: batterBundle(), delay: time.Second}, testLogger())
	agg := NewAggregator(set, DefaultMultipliers(), 20*time.Millisecond, testLogger())

	result := agg.Project(context.Background(), batterPlayer(), dfs.GameContext{Season: 2026})

	for category, cat := range result.PerCategory {
		assert.True(t, cat.Fallback, "category %s should fall back on timeout", category)
		assert.Contains(t, cat.Reason, "deadline exceeded")
	}
	assertBandInvariants(t, result)
}

// stubSource feeds a fixed estimator list regardless of role.
type stubSource struct {
	ests []estimators.Estimator
}

func (s *stubSource) ForRole(role dfs.Role) []estimators.Estimator { return s.ests }

func TestProjectPartialFailureIsolation(t *testing.T) {
	good := &stubEstimator{
		category: estimators.CategoryHits,
		estimate: dfs.CategoryEstimate{Expected: 1.2, Points: 4.0, Confidence: 70},
	}
	bad := &stubEstimator{
		category: estimators.CategoryHomeRuns,
		err:      errors.New("feed parse error"),
	}
	agg := NewAggregator(&stubSource{ests: []estimators.Estimator{good, bad}}, DefaultMultipliers(), time.Second, testLogger())

	result := agg.Project(context.Background(), batterPlayer(), dfs.GameContext{Season: 2026})

	require.Len(t, result.PerCategory, 2)

	// The healthy category comes through intact.
	hits := result.PerCategory[estimators.CategoryHits]
	assert.False(t, hits.Fallback)
	assert.Equal(t, good.estimate, hits.Estimate)

	// The failing one is substituted with its tagged default, and the
	// aggregate still includes both.
	hr := result.PerCategory[estimators.CategoryHomeRuns]
	assert.True(t, hr.Fallback)
	assert.Equal(t, "feed parse error", hr.Reason)
	assert.Equal(t, estimators.Default(estimators.CategoryHomeRuns), hr.Estimate)

	assert.InDelta(t, good.estimate.Points+hr.Estimate.Points, result.Points, 1e-9)
	assertBandInvariants(t, result)
}

func TestRunEstimatorPartialFailureIsolation(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), time.Second, testLogger())

	good := &stubEstimator{
		category: estimators.CategoryHits,
		estimate: dfs.CategoryEstimate{Expected: 1.2, Points: 4.0, Confidence: 70},
	}
	bad := &stubEstimator{
		category: estimators.CategoryHomeRuns,
		err:      errors.New("feed parse error"),
	}

	ctx := context.Background()
	player := batterPlayer()
	game := dfs.GameContext{Season: 2026}

	goodResult := agg.runEstimator(ctx, good, player, game)
	badResult := agg.runEstimator(ctx, bad, player, game)

	// The failing category gets its default; the healthy one is untouched.
	assert.False(t, goodResult.Fallback)
	assert.Equal(t, good.estimate, goodResult.Estimate)

	assert.True(t, badResult.Fallback)
	assert.Equal(t, "feed parse error", badResult.Reason)
	assert.Equal(t, estimators.Default(estimators.CategoryHomeRuns), badResult.Estimate)
}

func TestRunEstimatorBlockedEstimator(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), 20*time.Millisecond, testLogger())

	blocked := &stubEstimator{category: estimators.CategoryRuns, block: true}
	result := agg.runEstimator(context.Background(), blocked, batterPlayer(), dfs.GameContext{})

	assert.True(t, result.Fallback)
	assert.Contains(t, result.Reason, "deadline exceeded")
}

func TestCombineConfidenceWeighting(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), time.Second, testLogger())

	perCategory := map[string]dfs.CategoryResult{
		"a": {Category: "a", Estimate: dfs.CategoryEstimate{Points: 9.0, Confidence: 80}},
		"b": {Category: "b", Estimate: dfs.CategoryEstimate{Points: 1.0, Confidence: 20}},
	}

	result := agg.combine(batterPlayer(), perCategory)

	// (80*9 + 20*1) / 10 = 74: the big category dominates the blend.
	assert.InDelta(t, 74.0, result.Confidence, 1e-9)
	assert.InDelta(t, 10.0, result.Points, 1e-9)
}

func TestCombineZeroPointsZeroConfidence(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), time.Second, testLogger())

	perCategory := map[string]dfs.CategoryResult{
		"a": {Category: "a", Estimate: dfs.CategoryEstimate{Points: 0, Confidence: 90}},
	}

	result := agg.combine(batterPlayer(), perCategory)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, 0.0, result.Points)
	assertBandInvariants(t, result)
}

func TestCombineConfidenceClamped(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), time.Second, testLogger())

	perCategory := map[string]dfs.CategoryResult{
		"a": {Category: "a", Estimate: dfs.CategoryEstimate{Points: 5.0, Confidence: 150}},
	}

	result := agg.combine(batterPlayer(), perCategory)
	assert.Equal(t, 100.0, result.Confidence)
}

func TestCombineNetNegativePitcher(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), time.Second, testLogger())

	perCategory := map[string]dfs.CategoryResult{
		estimators.CategoryStrikeouts:      {Estimate: dfs.CategoryEstimate{Points: 3.0, Confidence: 50}},
		estimators.CategoryHitsRunsAllowed: {Estimate: dfs.CategoryEstimate{Points: -10.0, Confidence: 60}},
	}

	result := agg.combine(pitcherPlayer(), perCategory)

	// Net -7 points: presented band collapses to zero but the pre-clamp
	// floor is kept for diagnostics.
	assert.Equal(t, 0.0, result.Points)
	assert.Equal(t, 0.0, result.Floor)
	assert.Equal(t, 0.0, result.Ceiling)
	assert.InDelta(t, -5.25, result.RawFloor, 1e-9)
	assertBandInvariants(t, result)
}

func TestCombineRoleMultipliers(t *testing.T) {
	agg := NewAggregator(nil, DefaultMultipliers(), time.Second, testLogger())

	perCategory := map[string]dfs.CategoryResult{
		"a": {Estimate: dfs.CategoryEstimate{Points: 10.0, Confidence: 50}},
	}

	batter := agg.combine(batterPlayer(), perCategory)
	assert.InDelta(t, 5.0, batter.Floor, 1e-9)
	assert.InDelta(t, 15.0, batter.Ceiling, 1e-9)

	pitcher := agg.combine(pitcherPlayer(), perCategory)
	assert.InDelta(t, 7.5, pitcher.Floor, 1e-9)
	assert.InDelta(t, 12.0, pitcher.Ceiling, 1e-9)
}
