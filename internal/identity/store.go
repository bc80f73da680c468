package identity

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/models"
	"github.com/bdavis/diamond-dfs/internal/names"
	"github.com/bdavis/diamond-dfs/pkg/database"
)

// Store persists identity records through gorm. It implements RecordLoader
// for the registry's lazy one-time load and exposes Save for flushing
// provisional records created during a process's lifetime.
type Store struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewStore(db *database.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Load reads every identity row. Errors are returned to the registry, which
// treats them as "start empty" rather than fatal.
func (s *Store) Load() ([]Record, error) {
	var rows []models.PlayerIdentity
	if err := s.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading identity records: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			CanonicalID: row.CanonicalID,
			DisplayName: row.DisplayName,
			Position:    row.Position,
			TeamID:      row.TeamID,
			Active:      row.Active,
			Provisional: row.Provisional,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return records, nil
}

// Save upserts the given records by canonical ID. Used to flush provisional
// records at the end of a collection run; failures are logged per record so
// one bad row does not abort the flush.
func (s *Store) Save(records []Record) error {
	var failed int
	for _, rec := range records {
		row := models.PlayerIdentity{
			CanonicalID:    rec.CanonicalID,
			DisplayName:    rec.DisplayName,
			NormalizedName: names.Normalize(rec.DisplayName),
			Position:       rec.Position,
			TeamID:         rec.TeamID,
			Active:         rec.Active,
			Provisional:    rec.Provisional,
		}

		var existing models.PlayerIdentity
		err := s.db.Where("canonical_id = ?", rec.CanonicalID).First(&existing).Error
		if err != nil {
			if err := s.db.Create(&row).Error; err != nil {
				s.logger.WithError(err).WithField("canonical_id", rec.CanonicalID).
					Error("Failed to persist identity record")
				failed++
			}
			continue
		}

		existing.DisplayName = row.DisplayName
		existing.Position = row.Position
		existing.TeamID = row.TeamID
		existing.Active = row.Active
		if err := s.db.Save(&existing).Error; err != nil {
			s.logger.WithError(err).WithField("canonical_id", rec.CanonicalID).
				Error("Failed to update identity record")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to persist %d of %d identity records", failed, len(records))
	}
	return nil
}
