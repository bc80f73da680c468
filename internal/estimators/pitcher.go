package estimators

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
)

// DraftKings MLB scoring weights for pitcher categories.
const (
	pointsInningPitched = 2.25
	pointsStrikeout     = 2.0
	pointsWin           = 4.0
	pointsEarnedRun     = -2.0
	pointsHitAllowed    = -0.6
	pointsWalkAllowed   = -0.6
	pointsCompleteGame  = 2.5
	pointsShutout       = 2.5
	pointsNoHitter      = 5.0
)

// StrikeoutsEstimator projects strikeout points from per-start K rates.
type StrikeoutsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *StrikeoutsEstimator) Category() string { return CategoryStrikeouts }

func (e *StrikeoutsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	kPerStart := rates["strikeOuts"]

	return dfs.CategoryEstimate{
		Expected:   kPerStart,
		Points:     kPerStart * pointsStrikeout,
		Confidence: sampleConfidence(games*3, 70), // starters log ~30 games, not ~100
	}, nil
}

// InningsEstimator projects innings-pitched points.
type InningsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *InningsEstimator) Category() string { return CategoryInnings }

func (e *InningsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	inningsPerStart := rates["inningsPitched"]

	return dfs.CategoryEstimate{
		Expected:   inningsPerStart,
		Points:     inningsPerStart * pointsInningPitched,
		Confidence: sampleConfidence(games*3, 70),
	}, nil
}

// WinProbabilityEstimator projects win points from career win rate blended
// with the current season.
type WinProbabilityEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *WinProbabilityEstimator) Category() string { return CategoryWinProbability }

func (e *WinProbabilityEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	winProb := rates["wins"]

	// Blend with career rate; one hot month should not read as a 70% win
	// probability.
	if career, err := e.stats.GetCareerStats(ctx, player.CanonicalID); err == nil && len(career) > 1 {
		var careerWins, careerGames float64
		for _, season := range career {
			careerWins += season.Bundle.Stats["wins"]
			careerGames += float64(season.Bundle.Games)
		}
		if careerGames > 0 {
			winProb = (winProb + careerWins/careerGames) / 2.0
		}
	}

	winProb = math.Max(0, math.Min(1, winProb))

	return dfs.CategoryEstimate{
		Expected:   winProb,
		Points:     winProb * pointsWin,
		Confidence: sampleConfidence(games*3, 55),
	}, nil
}

// HitsRunsAllowedEstimator projects the negative contribution from hits,
// walks, and earned runs allowed. Points here are legitimately negative;
// the aggregate floor clamp happens after summation.
type HitsRunsAllowedEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *HitsRunsAllowedEstimator) Category() string { return CategoryHitsRunsAllowed }

func (e *HitsRunsAllowedEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	hits := rates["hits"]
	walks := rates["baseOnBalls"]
	earnedRuns := rates["earnedRuns"]

	if game.ParkFactor > 0 {
		hits *= game.ParkFactor
		earnedRuns *= game.ParkFactor
	}

	points := hits*pointsHitAllowed + walks*pointsWalkAllowed + earnedRuns*pointsEarnedRun

	return dfs.CategoryEstimate{
		Expected:   hits + walks + earnedRuns,
		Points:     points,
		Confidence: sampleConfidence(games*3, 65),
	}, nil
}

// RareEventsEstimator projects complete-game, shutout, and no-hitter bonus
// points. These are tiny probabilities with outsized point values.
type RareEventsEstimator struct {
	stats  dfs.StatsProvider
	logger *logrus.Logger
}

func (e *RareEventsEstimator) Category() string { return CategoryRareEvents }

func (e *RareEventsEstimator) Estimate(ctx context.Context, player dfs.ResolvedPlayer, game dfs.GameContext) (dfs.CategoryEstimate, error) {
	rates, games, err := seasonRates(ctx, e.stats, player, game)
	if err != nil {
		return dfs.CategoryEstimate{}, err
	}

	cgProb := rates["completeGames"]
	soProb := rates["shutouts"]
	noHitterProb := math.Min(cgProb*0.05, 0.01)

	points := cgProb*pointsCompleteGame + soProb*pointsShutout + noHitterProb*pointsNoHitter

	return dfs.CategoryEstimate{
		Expected:   cgProb + soProb + noHitterProb,
		Points:     points,
		Confidence: sampleConfidence(games*3, 50),
	}, nil
}
