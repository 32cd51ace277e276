package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"downtime-tracker-backend/config"
	"downtime-tracker-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate runs AutoMigrate for all models and applies the constraints gorm
// cannot express in tags. Shared with tests, which run it against sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Department{},
		&model.Equipment{},
		&model.DowntimeEvent{},
		&model.StatusChangeLog{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return applyConstraintDDL(db)
}

// applyConstraintDDL enforces the invariants the engine relies on at the
// storage layer, so a racing transaction cannot slip past the engine's
// existence checks:
//   - at most one open downtime event per equipment (partial unique index,
//     supported by both postgres and sqlite)
//   - a closed event must end strictly after it started
func applyConstraintDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_downtime_events_open " +
			"ON downtime_events (equipment_id) WHERE ended_at IS NULL;",
	}

	// sqlite cannot ALTER TABLE ... ADD CONSTRAINT; the engine still
	// validates ordering before writing, and tests cover it.
	if db.Dialector.Name() == "postgres" {
		ddls = append(ddls,
			"ALTER TABLE downtime_events DROP CONSTRAINT IF EXISTS downtime_events_ended_after_started;",
			"ALTER TABLE downtime_events ADD CONSTRAINT downtime_events_ended_after_started "+
				"CHECK (ended_at IS NULL OR ended_at > started_at);",
		)
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
