package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/bdavis/diamond-dfs/internal/models"
	"github.com/bdavis/diamond-dfs/internal/names"
	"github.com/bdavis/diamond-dfs/pkg/config"
	"github.com/bdavis/diamond-dfs/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(
		&models.PlayerIdentity{},
		&models.ProjectionRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_projection_runs_slate_date ON projection_runs(slate_date)",
		"CREATE INDEX IF NOT EXISTS idx_projection_runs_status ON projection_runs(status)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	tables := []string{
		"projection_runs",
		"player_identities",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	// A small roster so the resolver has something to match against
	// before the first real identity import.
	sample := []models.PlayerIdentity{
		{CanonicalID: 660271, DisplayName: "Shohei Ohtani", Aliases: datatypes.JSON(`["Ohtani, Shohei"]`)},
		{CanonicalID: 545361, DisplayName: "Mike Trout", Aliases: datatypes.JSON(`["Trout, Mike", "Michael Trout"]`)},
		{CanonicalID: 592450, DisplayName: "Aaron Judge", Aliases: datatypes.JSON(`["Judge, Aaron"]`)},
		{CanonicalID: 605141, DisplayName: "Mookie Betts", Aliases: datatypes.JSON(`["Betts, Mookie", "Markus Betts"]`)},
		{CanonicalID: 665742, DisplayName: "Juan Soto", Aliases: datatypes.JSON(`["Soto, Juan"]`)},
		{CanonicalID: 543037, DisplayName: "Gerrit Cole", Aliases: datatypes.JSON(`["Cole, Gerrit"]`)},
		{CanonicalID: 594798, DisplayName: "Jacob deGrom", Aliases: datatypes.JSON(`["deGrom, Jacob"]`)},
		{CanonicalID: 608331, DisplayName: "Max Fried", Aliases: datatypes.JSON(`["Fried, Max"]`)},
		{CanonicalID: 677951, DisplayName: "Bobby Witt Jr.", Aliases: datatypes.JSON(`["Witt Jr., Bobby", "Witt, Bobby"]`)},
		{CanonicalID: 592885, DisplayName: "Christian Yelich", Aliases: datatypes.JSON(`["Yelich, Christian"]`)},
	}

	for i := range sample {
		sample[i].NormalizedName = names.Normalize(sample[i].DisplayName)
	}

	if err := db.Create(&sample).Error; err != nil {
		return fmt.Errorf("failed to seed identities: %w", err)
	}

	logrus.Infof("Seeded %d player identities", len(sample))
	return nil
}
