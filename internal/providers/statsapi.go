package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bdavis/diamond-dfs/internal/dfs"
	"github.com/bdavis/diamond-dfs/internal/services"
)

// ErrNotFound is returned when the stats provider has no record for the
// requested player or matchup.
var ErrNotFound = errors.New("stats provider: not found")

// StatsAPIClient implements dfs.StatsProvider against the league stats API.
// Responses are cached in redis with a TTL, outbound calls are rate limited,
// and the round trip runs behind a circuit breaker so a flapping provider
// degrades projections instead of hammering a dead endpoint.
type StatsAPIClient struct {
	baseURL    string
	httpClient *http.Client
	cache      dfs.CacheProvider
	cacheTTL   time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// StatsAPIOptions carries the tunables for the stats client, populated from
// configuration by the caller.
type StatsAPIOptions struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        int // requests per second
	CacheTTL         time.Duration
	BreakerThreshold int // minimum requests before the breaker may trip
	BreakerTimeout   time.Duration
}

// NewStatsAPIClient creates a stats API client.
func NewStatsAPIClient(opts StatsAPIOptions, cache dfs.CacheProvider, logger *logrus.Logger) *StatsAPIClient {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 60 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "statsapi",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(opts.BreakerThreshold) && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &StatsAPIClient{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		cache:    cache,
		cacheTTL: opts.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit),
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   logger,
	}
}

// Stats API response structures
type statsAPISeasonResponse struct {
	Stats []struct {
		Type struct {
			DisplayName string `json:"displayName"`
		} `json:"type"`
		Splits []struct {
			Season string             `json:"season"`
			Stat   map[string]float64 `json:"stat"`
			Player struct {
				ID int64 `json:"id"`
			} `json:"player"`
			GamesPlayed int `json:"gamesPlayed"`
		} `json:"splits"`
	} `json:"stats"`
}

type statsAPIMatchupResponse struct {
	People []struct {
		ID    int64 `json:"id"`
		Stats []struct {
			Splits []struct {
				Stat map[string]float64 `json:"stat"`
			} `json:"splits"`
		} `json:"stats"`
	} `json:"people"`
}

// GetSeasonStats fetches one player's season statistics.
func (c *StatsAPIClient) GetSeasonStats(ctx context.Context, playerID int64, season int) (*dfs.StatBundle, error) {
	cacheKey := services.SeasonStatsCacheKey(playerID, season)

	var cached dfs.StatBundle
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	url := fmt.Sprintf("%s/people/%d/stats?stats=season&season=%d", c.baseURL, playerID, season)

	var resp statsAPISeasonResponse
	if err := c.fetch(ctx, url, &resp); err != nil {
		return nil, err
	}

	bundle, err := seasonBundleFromResponse(&resp, playerID, season)
	if err != nil {
		return nil, err
	}

	c.cache.SetSimple(cacheKey, bundle, c.cacheTTL)
	return bundle, nil
}

// GetCareerStats fetches a player's season-by-season career history.
func (c *StatsAPIClient) GetCareerStats(ctx context.Context, playerID int64) ([]dfs.SeasonStatBundle, error) {
	cacheKey := services.CareerStatsCacheKey(playerID)

	var cached []dfs.SeasonStatBundle
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/people/%d/stats?stats=yearByYear", c.baseURL, playerID)

	var resp statsAPISeasonResponse
	if err := c.fetch(ctx, url, &resp); err != nil {
		return nil, err
	}

	var seasons []dfs.SeasonStatBundle
	for _, group := range resp.Stats {
		for _, split := range group.Splits {
			var season int
			fmt.Sscanf(split.Season, "%d", &season)
			seasons = append(seasons, dfs.SeasonStatBundle{
				Season: season,
				Bundle: dfs.StatBundle{
					PlayerID: playerID,
					Season:   season,
					Games:    split.GamesPlayed,
					Stats:    split.Stat,
				},
			})
		}
	}

	if len(seasons) == 0 {
		return nil, ErrNotFound
	}

	c.cache.SetSimple(cacheKey, seasons, c.cacheTTL)
	return seasons, nil
}

// GetMatchupHistory fetches batter-vs-pitcher history.
func (c *StatsAPIClient) GetMatchupHistory(ctx context.Context, batterID, pitcherID int64) (*dfs.MatchupStatBundle, error) {
	cacheKey := services.MatchupCacheKey(batterID, pitcherID)

	var cached dfs.MatchupStatBundle
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	url := fmt.Sprintf("%s/people/%d?hydrate=stats(group=hitting,type=vsPlayer,opposingPlayerId=%d)", c.baseURL, batterID, pitcherID)

	var resp statsAPIMatchupResponse
	if err := c.fetch(ctx, url, &resp); err != nil {
		return nil, err
	}

	if len(resp.People) == 0 || len(resp.People[0].Stats) == 0 {
		return nil, ErrNotFound
	}

	stats := map[string]float64{}
	for _, group := range resp.People[0].Stats {
		for _, split := range group.Splits {
			for k, v := range split.Stat {
				stats[k] = v
			}
		}
	}

	bundle := &dfs.MatchupStatBundle{
		BatterID:         batterID,
		PitcherID:        pitcherID,
		PlateAppearances: int(stats["plateAppearances"]),
		Stats:            stats,
	}

	c.cache.SetSimple(cacheKey, bundle, c.cacheTTL)
	return bundle, nil
}

// fetch performs a rate-limited, breaker-protected GET and decodes JSON.
func (c *StatsAPIClient) fetch(ctx context.Context, url string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	// A 404 is a data condition, not a provider outage, so it must not
	// count against the breaker.
	type fetchResult struct {
		body     []byte
		notFound bool
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fetchResult{notFound: true}, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("stats provider returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return fetchResult{body: body}, nil
	})
	if err != nil {
		return err
	}

	fr := result.(fetchResult)
	if fr.notFound {
		return ErrNotFound
	}

	if err := json.Unmarshal(fr.body, dest); err != nil {
		return fmt.Errorf("failed to decode stats response: %w", err)
	}
	return nil
}

func seasonBundleFromResponse(resp *statsAPISeasonResponse, playerID int64, season int) (*dfs.StatBundle, error) {
	for _, group := range resp.Stats {
		for _, split := range group.Splits {
			return &dfs.StatBundle{
				PlayerID: playerID,
				Season:   season,
				Games:    split.GamesPlayed,
				Stats:    split.Stat,
			}, nil
		}
	}
	return nil, ErrNotFound
}
