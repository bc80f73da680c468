package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
	"github.com/bdavis/diamond-dfs/internal/identity"
	"github.com/bdavis/diamond-dfs/internal/models"
	"github.com/bdavis/diamond-dfs/internal/projections"
	"github.com/bdavis/diamond-dfs/pkg/database"
)

// slateWorkers caps concurrent player projections within one run.
const slateWorkers = 8

// CollectorService runs slate collections: it pulls the salary export,
// resolves every entry to a canonical identity, fans projections out across
// the slate concurrently, and records the outcome. A single player's total
// failure never stops the rest of the slate. Runs can be triggered manually
// or on a cron schedule.
type CollectorService struct {
	db         *database.DB
	cache      *CacheService
	logger     *logrus.Logger
	salaries   dfs.SalaryProvider
	resolver   *identity.Resolver
	registry   *identity.Registry
	store      *identity.Store
	aggregator *projections.Aggregator
	season     int

	// strictThreshold is the fuzzy-match floor used when merging salary
	// entries into scored projections.
	strictThreshold float64

	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	jobs      map[string]JobInfo
	isRunning bool
}

// JobInfo represents information about a scheduled job
type JobInfo struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Schedule   string        `json:"schedule"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	Status     string        `json:"status"`
	RunCount   int           `json:"run_count"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Duration   time.Duration `json:"duration"`
	IsEnabled  bool          `json:"is_enabled"`
}

// SlateResult is the outcome of one collection run.
type SlateResult struct {
	RunID       string                 `json:"run_id"`
	SlateDate   string                 `json:"slate_date"`
	Projections []dfs.ProjectionResult `json:"projections"`
	Total       int                    `json:"total"`
	Projected   int                    `json:"projected"`
	Failed      int                    `json:"failed"`
	Provisional int                    `json:"provisional"`
}

func NewCollectorService(
	db *database.DB,
	cache *CacheService,
	logger *logrus.Logger,
	salaries dfs.SalaryProvider,
	resolver *identity.Resolver,
	registry *identity.Registry,
	store *identity.Store,
	aggregator *projections.Aggregator,
	season int,
	strictThreshold float64,
) *CollectorService {
	ctx, cancel := context.WithCancel(context.Background())

	cronLogger := cron.VerbosePrintfLogger(logger)
	c := cron.New(cron.WithLogger(cronLogger))

	if strictThreshold <= 0 {
		strictThreshold = identity.StrictMatchThreshold
	}

	return &CollectorService{
		db:              db,
		cache:           cache,
		logger:          logger,
		salaries:        salaries,
		resolver:        resolver,
		registry:        registry,
		store:           store,
		aggregator:      aggregator,
		season:          season,
		strictThreshold: strictThreshold,
		cron:            c,
		ctx:             ctx,
		cancel:          cancel,
		jobs:            make(map[string]JobInfo),
	}
}

// RunSlate executes one collection run for a slate date (YYYY-MM-DD).
// Cancellation of ctx abandons in-flight projections and the partial result
// is discarded, not persisted.
func (cs *CollectorService) RunSlate(ctx context.Context, slateDate string) (*SlateResult, error) {
	runID := uuid.New().String()
	logger := cs.logger.WithFields(logrus.Fields{
		"component":  "collector",
		"run_id":     runID,
		"slate_date": slateDate,
	})
	logger.Info("Starting slate collection run")

	run := models.ProjectionRun{
		RunID:     runID,
		SlateDate: slateDate,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	if err := cs.db.Create(&run).Error; err != nil {
		logger.WithError(err).Warn("Failed to record projection run")
	}

	entries, err := cs.salaries.GetSalaries(slateDate)
	if err != nil {
		cs.finishRun(&run, "failed", nil)
		return nil, fmt.Errorf("fetching salary export: %w", err)
	}
	if len(entries) == 0 {
		cs.finishRun(&run, "completed", nil)
		return &SlateResult{RunID: runID, SlateDate: slateDate}, nil
	}

	game := cs.gameContext(slateDate)

	// Fan out across the slate. Identity resolution for scoring uses the
	// strict threshold: a wrong merge here corrupts a player's projection.
	var (
		wg      sync.WaitGroup
		results = make(chan dfs.ProjectionResult, len(entries))
		sem     = make(chan struct{}, slateWorkers)
	)

	for _, entry := range entries {
		wg.Add(1)
		go func(entry dfs.SalaryEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			player := cs.resolver.ResolveEntry(entry, cs.strictThreshold)
			results <- cs.aggregator.Project(ctx, player, game)
		}(entry)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var projected []dfs.ProjectionResult
	provisional := 0
	for result := range results {
		if result.Provisional {
			provisional++
		}
		projected = append(projected, result)
	}

	if ctx.Err() != nil {
		logger.Warn("Collection run cancelled, discarding partial results")
		cs.finishRun(&run, "cancelled", nil)
		return nil, ctx.Err()
	}

	slate := &SlateResult{
		RunID:       runID,
		SlateDate:   slateDate,
		Projections: projected,
		Total:       len(entries),
		Projected:   len(projected),
		Failed:      len(entries) - len(projected),
		Provisional: provisional,
	}

	// Cache the slate for the API and flush provisional identities so they
	// survive the process.
	if err := cs.cache.SetSimple(ProjectionsCacheKey(slateDate), slate, 6*time.Hour); err != nil {
		logger.WithError(err).Warn("Failed to cache slate projections")
	}
	if provisionals := cs.registry.Provisionals(); len(provisionals) > 0 {
		if err := cs.store.Save(provisionals); err != nil {
			logger.WithError(err).Warn("Failed to flush provisional identities")
		}
	}

	cs.finishRun(&run, "completed", slate)

	logger.WithFields(logrus.Fields{
		"total":       slate.Total,
		"projected":   slate.Projected,
		"provisional": slate.Provisional,
	}).Info("Slate collection run completed")

	return slate, nil
}

func (cs *CollectorService) gameContext(slateDate string) dfs.GameContext {
	date, err := time.Parse("2006-01-02", slateDate)
	if err != nil {
		date = time.Now().UTC()
	}
	return dfs.GameContext{
		Date:       date,
		Season:     cs.season,
		ParkFactor: 1.0,
	}
}

func (cs *CollectorService) finishRun(run *models.ProjectionRun, status string, slate *SlateResult) {
	run.Status = status
	run.FinishedAt = time.Now().UTC()
	if slate != nil {
		run.PlayersTotal = slate.Total
		run.PlayersProjected = slate.Projected
		run.PlayersFailed = slate.Failed
		run.Provisional = slate.Provisional
		run.FallbackRatio = fallbackRatio(slate.Projections)
	}
	if err := cs.db.Save(run).Error; err != nil {
		cs.logger.WithError(err).Warn("Failed to update projection run")
	}
}

// fallbackRatio reports what share of category estimates across the slate
// were substituted defaults; a high ratio means the stats provider was
// degraded during the run.
func fallbackRatio(results []dfs.ProjectionResult) float64 {
	var total, fallback int
	for _, result := range results {
		for _, cat := range result.PerCategory {
			total++
			if cat.Fallback {
				fallback++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(fallback) / float64(total)
}

// Start schedules the recurring collection job.
func (cs *CollectorService) Start(schedule string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.isRunning {
		return fmt.Errorf("collector service is already running")
	}

	if err := cs.addJob("slate_collection", schedule, "Slate collection", func() {
		slateDate := time.Now().UTC().Format("2006-01-02")
		if _, err := cs.RunSlate(cs.ctx, slateDate); err != nil {
			cs.logger.WithError(err).Error("Scheduled slate collection failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule collection job: %w", err)
	}

	cs.cron.Start()
	cs.isRunning = true

	cs.logger.WithField("component", "collector").Info("CollectorService started")
	return nil
}

// addJob adds a new scheduled job
func (cs *CollectorService) addJob(id, schedule, name string, jobFunc func()) error {
	entryID, err := cs.cron.AddFunc(schedule, func() {
		cs.runJob(id, name, jobFunc)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", id, err)
	}

	var nextRun time.Time
	for _, entry := range cs.cron.Entries() {
		if entry.ID == entryID {
			nextRun = entry.Next
			break
		}
	}

	cs.jobs[id] = JobInfo{
		ID:        id,
		Name:      name,
		Schedule:  schedule,
		NextRun:   nextRun,
		Status:    "scheduled",
		IsEnabled: true,
	}

	cs.logger.WithFields(logrus.Fields{
		"component": "collector",
		"job_id":    id,
		"schedule":  schedule,
		"next_run":  nextRun,
	}).Info("Scheduled job added")

	return nil
}

// runJob executes a job with error handling and metrics
func (cs *CollectorService) runJob(id, name string, jobFunc func()) {
	cs.mu.Lock()
	job, exists := cs.jobs[id]
	if !exists || !job.IsEnabled {
		cs.mu.Unlock()
		return
	}
	job.Status = "running"
	job.LastRun = time.Now()
	job.RunCount++
	cs.jobs[id] = job
	cs.mu.Unlock()

	logger := cs.logger.WithFields(logrus.Fields{
		"component": "collector",
		"job_id":    id,
		"run_count": job.RunCount,
	})
	logger.Info("Starting scheduled job")
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Job panicked")
			cs.updateJobStatus(id, "failed", fmt.Sprintf("panic: %v", r), time.Since(startTime))
		}
	}()

	jobFunc()

	duration := time.Since(startTime)
	logger.WithField("duration", duration).Info("Job completed")
	cs.updateJobStatus(id, "completed", "", duration)
}

// updateJobStatus updates the status of a job
func (cs *CollectorService) updateJobStatus(id, status, errorMsg string, duration time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	job, exists := cs.jobs[id]
	if !exists {
		return
	}

	job.Status = status
	job.Duration = duration
	if errorMsg != "" {
		job.ErrorCount++
		job.LastError = errorMsg
	}

	for _, entry := range cs.cron.Entries() {
		job.NextRun = entry.Next
		break
	}

	cs.jobs[id] = job
}

// GetJobs returns information about all scheduled jobs
func (cs *CollectorService) GetJobs() map[string]JobInfo {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	jobs := make(map[string]JobInfo)
	for k, v := range cs.jobs {
		jobs[k] = v
	}
	return jobs
}

// GetStatus returns the current status of the collector service
func (cs *CollectorService) GetStatus() map[string]interface{} {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return map[string]interface{}{
		"is_running": cs.isRunning,
		"jobs":       cs.jobs,
		"job_count":  len(cs.jobs),
		"registry":   cs.registry.Len(),
	}
}

// Stop stops the collector service and abandons in-flight runs.
func (cs *CollectorService) Stop() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.isRunning {
		return nil
	}

	cs.logger.WithField("component", "collector").Info("Stopping CollectorService")

	stopCtx := cs.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		cs.logger.WithField("component", "collector").Warn("Cron scheduler stop timed out")
	}

	cs.cancel()
	cs.isRunning = false

	return nil
}
