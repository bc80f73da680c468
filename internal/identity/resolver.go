package identity

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/dfs"
	"github.com/bdavis/diamond-dfs/internal/names"
)

const (
	// DefaultMatchThreshold governs opportunistic fuzzy matching.
	DefaultMatchThreshold = 0.7
	// StrictMatchThreshold is used in identity-critical contexts, such as
	// merging salary data into per-player records for scoring.
	StrictMatchThreshold = 0.8
)

// Resolver maps free-text player names to canonical identity records via a
// cascading strategy: exact normalized match, token containment, fuzzy
// similarity, and finally a provisional record. Resolution never fails for
// a well-formed name; the worst outcome is a provisional identity.
type Resolver struct {
	registry *Registry
	logger   *logrus.Logger
}

func NewResolver(registry *Registry, logger *logrus.Logger) *Resolver {
	return &Resolver{registry: registry, logger: logger}
}

// Resolve resolves a raw name against the registry. The threshold is the
// minimum fuzzy similarity a candidate must reach; callers choose between
// DefaultMatchThreshold and StrictMatchThreshold depending on how costly a
// wrong match is in their context.
func (r *Resolver) Resolve(rawName string, threshold float64) Record {
	return r.resolve(rawName, "", "", threshold)
}

// ResolveEntry resolves a salary-export entry, using its source ID for the
// synthetic identity when no match exists, and joins the result into a
// ResolvedPlayer. Every entry yields exactly one ResolvedPlayer.
func (r *Resolver) ResolveEntry(entry dfs.SalaryEntry, threshold float64) dfs.ResolvedPlayer {
	rec := r.resolve(entry.RawName, entry.SourceID, entry.Position, threshold)
	return dfs.ResolvedPlayer{
		CanonicalID: rec.CanonicalID,
		DisplayName: rec.DisplayName,
		Provisional: rec.Provisional,
		Role:        dfs.RoleForPosition(entry.Position),
		Entry:       entry,
	}
}

func (r *Resolver) resolve(rawName, sourceID, position string, threshold float64) Record {
	normalized := names.Normalize(rawName)

	// Stage 1: exact match on the normalized name.
	if rec, ok := r.registry.LookupExact(normalized); ok {
		return rec
	}

	// Stage 2: token containment. With at least two tokens, take the first
	// and last as given/family name and accept the first registry record
	// whose normalized display name contains both. Registry order is
	// deterministic, so repeated calls pick the same record.
	tokens := strings.Fields(normalized)
	if len(tokens) >= 2 {
		first, last := tokens[0], tokens[len(tokens)-1]
		for _, rec := range r.registry.All() {
			candidate := names.Normalize(rec.DisplayName)
			if strings.Contains(candidate, first) && strings.Contains(candidate, last) {
				r.logger.WithFields(logrus.Fields{
					"component":    "player_resolver",
					"raw_name":     rawName,
					"matched":      rec.DisplayName,
					"canonical_id": rec.CanonicalID,
					"stage":        "token",
				}).Debug("Resolved by token containment")
				return rec
			}
		}
	}

	// Stage 3: fuzzy match. Scan every record, keep the best similarity,
	// accept it only at or above the caller's threshold.
	var (
		best      Record
		bestScore float64
		found     bool
	)
	for _, rec := range r.registry.All() {
		score := names.Similarity(rawName, rec.DisplayName)
		if score > bestScore {
			best = rec
			bestScore = score
			found = true
		}
	}
	if found && bestScore >= threshold {
		r.logger.WithFields(logrus.Fields{
			"component":    "player_resolver",
			"raw_name":     rawName,
			"matched":      best.DisplayName,
			"canonical_id": best.CanonicalID,
			"score":        bestScore,
			"stage":        "fuzzy",
		}).Debug("Resolved by fuzzy similarity")
		return best
	}

	// Stage 4: no match anywhere. Fabricate a provisional identity so the
	// pipeline can keep going; AddProvisional is idempotent per normalized
	// name, so concurrent misses for the same player converge on one record.
	rec := r.registry.AddProvisional(sourceID, rawName, position)
	r.logger.WithFields(logrus.Fields{
		"component":    "player_resolver",
		"raw_name":     rawName,
		"canonical_id": rec.CanonicalID,
		"best_score":   bestScore,
		"stage":        "provisional",
	}).Info("No identity match, created provisional record")
	return rec
}
