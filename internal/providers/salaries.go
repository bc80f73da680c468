package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
)

// SalaryFeedClient pulls contest salary exports from the DFS platform's
// draftables endpoint. It implements dfs.SalaryProvider. Player records in
// this feed carry free-text names only; identity resolution happens
// downstream.
type SalaryFeedClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	groupCache sync.Map // map[date]cachedSlate
}

type cachedSlate struct {
	lastFetch time.Time
	entries   []dfs.SalaryEntry
}

func NewSalaryFeedClient(baseURL string, logger *logrus.Logger) *SalaryFeedClient {
	return &SalaryFeedClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type draftablesResponse struct {
	Draftables []struct {
		PlayerID         int     `json:"playerId"`
		DisplayName      string  `json:"displayName"`
		Position         string  `json:"position"`
		Salary           int     `json:"salary"`
		TeamAbbreviation string  `json:"teamAbbreviation"`
		PointsPerGame    float64 `json:"pointsPerGame"`
	} `json:"draftables"`
}

// GetSalaries fetches the salary export for a slate date. Responses are
// cached in-process for an hour per date to stay polite with the platform.
func (c *SalaryFeedClient) GetSalaries(date string) ([]dfs.SalaryEntry, error) {
	if val, ok := c.groupCache.Load(date); ok {
		cache := val.(cachedSlate)
		if time.Since(cache.lastFetch) < time.Hour {
			return cache.entries, nil
		}
	}

	url := fmt.Sprintf("%s/draftgroups/v1/slates/%s/draftables", c.baseURL, date)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch salaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("salary feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read salary response: %w", err)
	}

	var draftables draftablesResponse
	if err := json.Unmarshal(body, &draftables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal salary response: %w", err)
	}

	entries := make([]dfs.SalaryEntry, 0, len(draftables.Draftables))
	for _, d := range draftables.Draftables {
		if d.DisplayName == "" {
			continue
		}
		entries = append(entries, dfs.SalaryEntry{
			SourceID:         fmt.Sprintf("%d", d.PlayerID),
			RawName:          d.DisplayName,
			Position:         d.Position,
			Salary:           d.Salary,
			TeamAbbrev:       d.TeamAbbreviation,
			AvgPointsPerGame: d.PointsPerGame,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"component": "salary_feed",
		"date":      date,
		"entries":   len(entries),
	}).Info("Fetched salary export")

	c.groupCache.Store(date, cachedSlate{lastFetch: time.Now(), entries: entries})
	return entries, nil
}
