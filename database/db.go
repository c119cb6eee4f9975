package database

import (
	"fmt"

	"eventpilot/config"
	"eventpilot/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the PostgreSQL connection and migrates the schema.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := RunMigration(db); err != nil {
		logger.Error("Failed to execute migrations", err)
		return nil, err
	}
	return db, nil
}

// Connect opens the connection without migrating.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")
	return db, nil
}

// createIndexes adds composite indexes the struct tags cannot express.
func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_registrations_session_approved", "CREATE INDEX IF NOT EXISTS idx_registrations_session_approved ON registrations(session_id, is_approved)"},
		{"idx_valet_records_queue", "CREATE INDEX IF NOT EXISTS idx_valet_records_queue ON valet_records(session_id, status, retrieval_priority DESC, retrieval_requested_at)"},
		{"idx_email_logs_status_created", "CREATE INDEX IF NOT EXISTS idx_email_logs_status_created ON email_logs(status, created_at)"},
		{"idx_invites_session_email", "CREATE INDEX IF NOT EXISTS idx_invites_session_email ON invites(session_id, email)"},
		{"idx_sponsorships_unique", "CREATE UNIQUE INDEX IF NOT EXISTS idx_sponsorships_unique ON event_sponsorships(session_id, sponsor_id, sponsorship_type)"},
		{"idx_request_logs_created_at", "CREATE INDEX IF NOT EXISTS idx_request_logs_created_at ON request_logs(created_at)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
