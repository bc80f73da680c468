package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdavis/diamond-dfs/internal/dfs"
	"github.com/bdavis/diamond-dfs/internal/estimators"
	"github.com/bdavis/diamond-dfs/internal/identity"
	"github.com/bdavis/diamond-dfs/internal/models"
	"github.com/bdavis/diamond-dfs/internal/projections"
	"github.com/bdavis/diamond-dfs/pkg/database"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type stubSalaries struct {
	entries []dfs.SalaryEntry
	err     error
}

func (s *stubSalaries) GetSalaries(date string) ([]dfs.SalaryEntry, error) {
	return s.entries, s.err
}

type stubStats struct{}

func (s *stubStats) GetSeasonStats(ctx context.Context, playerID int64, season int) (*dfs.StatBundle, error) {
	return &dfs.StatBundle{
		PlayerID: playerID,
		Season:   season,
		Games:    100,
		Stats: map[string]float64{
			"hits": 150, "doubles": 30, "triples": 5, "homeRuns": 25,
			"stolenBases": 10, "runs": 90, "rbi": 80, "baseOnBalls": 60, "hitByPitch": 5,
		},
	}, nil
}

func (s *stubStats) GetCareerStats(ctx context.Context, playerID int64) ([]dfs.SeasonStatBundle, error) {
	return nil, errors.New("no career data")
}

func (s *stubStats) GetMatchupHistory(ctx context.Context, batterID, pitcherID int64) (*dfs.MatchupStatBundle, error) {
	return nil, errors.New("no matchup data")
}

func newTestCollector(t *testing.T, salaries dfs.SalaryProvider) (*CollectorService, *database.DB) {
	t.Helper()
	logger := testLogger()

	db, err := database.NewConnection("sqlite", filepath.Join(t.TempDir(), "collector.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.AutoMigrate(&models.PlayerIdentity{}, &models.ProjectionRun{}))

	require.NoError(t, db.Create(&models.PlayerIdentity{
		CanonicalID:    545361,
		DisplayName:    "Mike Trout",
		NormalizedName: "michael trout",
		Position:       "OF",
		Active:         true,
	}).Error)

	// Unreachable redis: cache writes degrade to warnings, which is the
	// behavior under test for the slate cache path.
	cache := NewCacheService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}))

	store := identity.NewStore(db, logger)
	registry := identity.NewRegistry(store, logger)
	resolver := identity.NewResolver(registry, logger)

	set := estimators.NewSet(&stubStats{}, logger)
	aggregator := projections.NewAggregator(set, projections.DefaultMultipliers(), time.Second, logger)

	return NewCollectorService(db, cache, logger, salaries, resolver, registry, store, aggregator, 2026, identity.StrictMatchThreshold), db
}

func TestRunSlate(t *testing.T) {
	salaries := &stubSalaries{entries: []dfs.SalaryEntry{
		{SourceID: "101", RawName: "Trout, Mike", Position: "OF", Salary: 6200, TeamAbbrev: "LAA"},
		{SourceID: "102", RawName: "Zzyzx Player", Position: "SS", Salary: 3000, TeamAbbrev: "OAK"},
	}}
	collector, db := newTestCollector(t, salaries)

	slate, err := collector.RunSlate(context.Background(), "2026-08-30")
	require.NoError(t, err)

	assert.Equal(t, 2, slate.Total)
	assert.Equal(t, 2, slate.Projected)
	assert.Equal(t, 0, slate.Failed)
	assert.Equal(t, 1, slate.Provisional)

	// The known player resolved to the seeded identity; the unknown one got
	// a provisional record with defaults in every category.
	byID := make(map[int64]dfs.ProjectionResult)
	for _, p := range slate.Projections {
		byID[p.CanonicalID] = p
	}
	trout, ok := byID[545361]
	require.True(t, ok)
	assert.False(t, trout.Provisional)
	assert.Positive(t, trout.Points)

	unknown, ok := byID[-102]
	require.True(t, ok)
	assert.True(t, unknown.Provisional)

	// Run bookkeeping lands in the database.
	var run models.ProjectionRun
	require.NoError(t, db.Where("run_id = ?", slate.RunID).First(&run).Error)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 2, run.PlayersTotal)
	assert.Equal(t, 1, run.Provisional)

	// Provisional identities are flushed for the next process.
	var row models.PlayerIdentity
	require.NoError(t, db.Where("canonical_id = ?", int64(-102)).First(&row).Error)
	assert.True(t, row.Provisional)
}

func TestRunSlateSalaryFeedFailure(t *testing.T) {
	collector, db := newTestCollector(t, &stubSalaries{err: errors.New("feed down")})

	_, err := collector.RunSlate(context.Background(), "2026-08-30")
	require.Error(t, err)

	var run models.ProjectionRun
	require.NoError(t, db.Where("slate_date = ?", "2026-08-30").First(&run).Error)
	assert.Equal(t, "failed", run.Status)
}

func TestRunSlateEmptySlate(t *testing.T) {
	collector, _ := newTestCollector(t, &stubSalaries{})

	slate, err := collector.RunSlate(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, 0, slate.Total)
	assert.Empty(t, slate.Projections)
}

func TestRunSlateCancelled(t *testing.T) {
	salaries := &stubSalaries{entries: []dfs.SalaryEntry{
		{SourceID: "101", RawName: "Trout, Mike", Position: "OF"},
	}}
	collector, db := newTestCollector(t, salaries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collector.RunSlate(ctx, "2026-08-30")
	require.ErrorIs(t, err, context.Canceled)

	// Partial results are discarded, not persisted as completed.
	var run models.ProjectionRun
	require.NoError(t, db.Where("slate_date = ?", "2026-08-30").First(&run).Error)
	assert.Equal(t, "cancelled", run.Status)
}

func TestFallbackRatio(t *testing.T) {
	results := []dfs.ProjectionResult{
		{
			PerCategory: map[string]dfs.CategoryResult{
				"hits":      {Fallback: false},
				"home_runs": {Fallback: true},
			},
		},
		{
			PerCategory: map[string]dfs.CategoryResult{
				"hits":      {Fallback: true},
				"home_runs": {Fallback: true},
			},
		},
	}

	assert.InDelta(t, 0.75, fallbackRatio(results), 1e-9)
}

func TestFallbackRatioEmpty(t *testing.T) {
	assert.Equal(t, 0.0, fallbackRatio(nil))
	assert.Equal(t, 0.0, fallbackRatio([]dfs.ProjectionResult{}))
}

func TestFallbackRatioAllHealthy(t *testing.T) {
	results := []dfs.ProjectionResult{
		{PerCategory: map[string]dfs.CategoryResult{
			"hits": {Fallback: false},
			"runs": {Fallback: false},
		}},
	}
	assert.Equal(t, 0.0, fallbackRatio(results))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "stats:season:545361:2026", SeasonStatsCacheKey(545361, 2026))
	assert.Equal(t, "stats:career:545361", CareerStatsCacheKey(545361))
	assert.Equal(t, "stats:matchup:545361:543037", MatchupCacheKey(545361, 543037))
	assert.Equal(t, "projections:2026-08-30", ProjectionsCacheKey("2026-08-30"))
}
