package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lab-reservation-backend/config"
	"lab-reservation-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
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

	if cfg.EnableExclusionConstraint {
		if cfg.Driver != "postgres" {
			log.Printf("Warning: exclusion constraint requires postgres, driver is %q. Skipping.", cfg.Driver)
		} else {
			log.Println("Applying reservation exclusion constraint...")
			if err := applyExclusionDDL(db); err != nil {
				log.Printf("Warning: failed to apply exclusion constraint: %v. Continuing without it.", err)
			}
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Equipment{},
		&model.Reservation{},
		&model.Notification{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyExclusionDDL makes postgres reject two blocking reservations of the same
// equipment with intersecting [start, end) ranges.
func applyExclusionDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_period_valid;",
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_period_valid CHECK (start_date < end_date);",

		"ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_requester_xor;",
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_requester_xor CHECK ((user_id IS NULL) <> (team_id IS NULL));",

		"ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_no_overlap;",
		"ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap " +
			"EXCLUDE USING GIST (equipment_id WITH =, tstzrange(start_date, end_date, '[)') WITH &&) " +
			"WHERE (status IN ('PENDING', 'APPROVED', 'ONGOING'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
