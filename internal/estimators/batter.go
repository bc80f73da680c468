package estimators

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
)

// DraftKings MLB scoring weights for batter categories.
const (
	pointsSingle = 3.0
	pointsDouble = 5.0
	pointsTriple = 8.0
	pointsHomer  = 10.0
	pointsRun    = 2.0
	pointsRBI    = 2.0
	pointsWalk   = 2.0
	pointsHBP    = 2.0
	pointsSteal  = 5.0
)

// seasonRates fetches a player's current-season stats and returns per-game
// rates. Provisional identities have no provider record, so this fails for
// them and the aggregator substitutes category defaults.
func seasonRates(ctx context.Context, stats dfs.StatsProvider, player dfs.ResolvedPlayer, game dfs.GameContext) (map[string]float64, int, error) {
	if player.Provisional {
		return nil, 0, fmt.Errorf("no provider stats for provisional identity %d", player.CanonicalID)
	}

	bundle, err := stats.GetSeasonStats(ctx, player.CanonicalID, game.Season)
	if err != nil {
		return nil, 0, fmt.Errorf("season stats for player %d: %w", player.CanonicalID, err)
	}
	if bundle.Games == 0 {
		return nil, 0, fmt.Errorf("player %d has no games in season %d", player.CanonicalID, game.Season)
	}

	rates := make(map[string]float64, len(bundle.Stats))
	for k, v := range bundle.Stats {
		rates[k] = v / float64(bundle.Games)
	}
	return rates, bundle.Games, nil
}

// sampleConfidence scales confidence by games played: a 10-game sample is
// worth far less than a full season.
func sampleConfidence(games int, base float64) float64 {
	factor := float64(games) / 100.0
	return base * math.Min(1.0, factor+0.3)
}

// HitsEstimator projects non-HR hit points from per-game hit-type rates.
type HitsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *HitsEstimator) Category() string { return CategoryHits }

func (e *HitsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	doubles := rates["doubles"]
	triples := rates["triples"]
	homers := rates["homeRuns"]
	singles := rates["hits"] - doubles - triples - homers
	if singles < 0 {
		singles = 0
	}

	expected := singles + doubles + triples
	points := singles*pointsSingle + doubles*pointsDouble + triples*pointsTriple

	// Hitter-friendly parks lift contact outcomes modestly.
	if game.ParkFactor > 0 {
		points *= game.ParkFactor
		expected *= game.ParkFactor
	}

	return dfs.CategoryEstimate{
		Expected:   expected,
		Points:     points,
		Confidence: sampleConfidence(games, 70),
	}, nil
}

// HomeRunsEstimator projects home-run points, adjusted for park and weather.
type HomeRunsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *HomeRunsEstimator) Category() string { return CategoryHomeRuns }

func (e *HomeRunsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	hrRate := rates["homeRuns"]

	// Park and wind move home-run probability more than any other category.
	if game.ParkFactor > 0 {
		hrRate *= game.ParkFactor
	}
	if game.WindSpeedMPH > 15 {
		hrRate *= 1.08
	}
	if game.TemperatureF > 85 {
		hrRate *= 1.05
	}

	// Matchup history sharpens the estimate when there is a real sample.
	confidence := sampleConfidence(games, 65)
	if game.OpponentPitcher > 0 {
		if matchup, err := e.stats.GetMatchupHistory(ctx, player.CanonicalID, game.OpponentPitcher); err == nil && matchup.PlateAppearances >= 10 {
			matchupHR := matchup.Stats["homeRuns"] / float64(matchup.PlateAppearances) * 4.0
			hrRate = (hrRate + matchupHR) / 2.0
			confidence += 10
		}
	}

	return dfs.CategoryEstimate{
		Expected:   hrRate,
		Points:     hrRate * pointsHomer,
		Confidence: math.Min(confidence, 100),
	}, nil
}

// StolenBasesEstimator projects stolen-base points.
type StolenBasesEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *StolenBasesEstimator) Category() string { return CategoryStolenBases }

func (e *StolenBasesEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	sbRate := rates["stolenBases"]

	return dfs.CategoryEstimate{
		Expected:   sbRate,
		Points:     sbRate * pointsSteal,
		Confidence: sampleConfidence(games, 60),
	}, nil
}

// RunsEstimator projects runs-scored points.
type RunsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *RunsEstimator) Category() string { return CategoryRuns }

func (e *RunsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	runRate := rates["runs"]
	if game.ParkFactor > 0 {
		runRate *= game.ParkFactor
	}

	return dfs.CategoryEstimate{
		Expected:   runRate,
		Points:     runRate * pointsRun,
		Confidence: sampleConfidence(games, 60),
	}, nil
}

// RBIsEstimator projects RBI points.
type RBIsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *RBIsEstimator) Category() string { return CategoryRBIs }

func (e *RBIsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	rbiRate := rates["rbi"]
	if game.ParkFactor > 0 {
		rbiRate *= game.ParkFactor
	}

	return dfs.CategoryEstimate{
		Expected:   rbiRate,
		Points:     rbiRate * pointsRBI,
		Confidence: sampleConfidence(games, 60),
	}, nil
}

// WalksHBPEstimator projects walk and hit-by-pitch points.
type WalksHBPEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *WalksHBPEstimator) Category() string { return CategoryWalksHBP }

func (e *WalksHBPEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	walkRate := rates["baseOnBalls"]
	hbpRate := rates["hitByPitch"]

	return dfs.CategoryEstimate{
		Expected:   walkRate + hbpRate,
		Points:     walkRate*pointsWalk + hbpRate*pointsHBP,
		Confidence: sampleConfidence(games, 65),
	}, nil
}
