package identity

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/names"
)

// Record is one identity-registry entry. Canonical IDs sourced from the
// stats provider are positive; provisional records fabricated for unresolved
// names carry negative synthetic IDs and the Provisional flag. Code branches
// on the flag, never on sign.
type Record struct {
	CanonicalID int64     `json:"canonical_id"`
	DisplayName string    `json:"display_name"`
	Position    string    `json:"position"`
	TeamID      int64     `json:"team_id"`
	Active      bool      `json:"active"`
	Provisional bool      `json:"provisional"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecordLoader loads identity records from external storage. Load must be
// safe to call at most once and must not fail hard: a load error degrades
// the registry to empty rather than crashing the pipeline.
type RecordLoader interface {
	Load() ([]Record, error)
}

// Registry is an in-memory, append-only collection of identity records.
// It is the only mutable shared state in the projection pipeline, so all
// access goes through the mutex; AddProvisional does its duplicate check
// inside the critical section.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Record // normalized display name -> record
	ordered  []*Record          // insertion order, for deterministic scans
	loader   RecordLoader
	loadOnce sync.Once
	logger   *logrus.Logger
}

// NewRegistry creates a registry backed by the given loader. The loader may
// be nil, in which case the registry simply starts empty.
func NewRegistry(loader RecordLoader, logger *logrus.Logger) *Registry {
	return &Registry{
		byName: make(map[string]*Record),
		loader: loader,
		logger: logger,
	}
}

// ensureLoaded performs the lazy one-time load from external storage.
// On load failure the registry stays empty and resolution degrades to
// always-provisional.
func (r *Registry) ensureLoaded() {
	r.loadOnce.Do(func() {
		if r.loader == nil {
			return
		}
		records, err := r.loader.Load()
		if err != nil {
			r.logger.WithError(err).WithField("component", "identity_registry").
				Warn("Registry load failed, starting empty")
			return
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range records {
			rec := records[i]
			key := names.Normalize(rec.DisplayName)
			if key == "" {
				continue
			}
			if _, exists := r.byName[key]; exists {
				continue
			}
			stored := rec
			r.byName[key] = &stored
			r.ordered = append(r.ordered, &stored)
		}
		r.logger.WithFields(logrus.Fields{
			"component": "identity_registry",
			"records":   len(r.ordered),
		}).Info("Identity registry loaded")
	})
}

// LookupExact returns the record whose normalized display name equals the
// given normalized name.
func (r *Registry) LookupExact(normalizedName string) (Record, bool) {
	r.ensureLoaded()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.byName[normalizedName]; ok {
		return *rec, true
	}
	return Record{}, false
}

// All returns a snapshot of every record in deterministic insertion order.
func (r *Registry) All() []Record {
	r.ensureLoaded()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, len(r.ordered))
	for i, rec := range r.ordered {
		out[i] = *rec
	}
	return out
}

// Len returns the number of records currently in the registry.
func (r *Registry) Len() int {
	r.ensureLoaded()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// AddProvisional appends a provisional record for an unresolved name.
// Idempotent per normalized name: if a record with the same normalized
// display name already exists, that record is returned and nothing is
// created. The synthetic canonical ID is the negation of the numeric source
// ID, or a negative FNV hash of the normalized name when no usable source ID
// is available, so it can never collide with the provider's positive IDs.
func (r *Registry) AddProvisional(sourceID, rawName, position string) Record {
	r.ensureLoaded()

	key := names.Normalize(rawName)

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, exists := r.byName[key]; exists {
		return *rec
	}

	now := time.Now().UTC()
	rec := &Record{
		CanonicalID: syntheticID(sourceID, key),
		DisplayName: rawName,
		Position:    position,
		Active:      true,
		Provisional: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.byName[key] = rec
	r.ordered = append(r.ordered, rec)

	r.logger.WithFields(logrus.Fields{
		"component":    "identity_registry",
		"raw_name":     rawName,
		"canonical_id": rec.CanonicalID,
	}).Debug("Created provisional identity record")

	return *rec
}

// Provisionals returns the provisional records created during this process,
// for callers that flush them back to storage.
func (r *Registry) Provisionals() []Record {
	r.ensureLoaded()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.ordered {
		if rec.Provisional {
			out = append(out, *rec)
		}
	}
	return out
}

func syntheticID(sourceID, normalizedName string) int64 {
	if id, err := strconv.ParseInt(sourceID, 10, 64); err == nil && id > 0 {
		return -id
	}

	h := fnv.New64a()
	h.Write([]byte(normalizedName))
	id := int64(h.Sum64() & 0x7fffffffffffffff)
	if id == 0 {
		id = 1
	}
	return -id
}
