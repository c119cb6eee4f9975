package database

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"eventpilot/logger"
	"eventpilot/models/catering"
	"eventpilot/models/email"
	"eventpilot/models/gallery"
	"eventpilot/models/guest"
	"eventpilot/models/invitation"
	"eventpilot/models/log"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/settings"
	"eventpilot/models/sponsor"
	"eventpilot/models/suggestion"
	"eventpilot/models/user"
	"eventpilot/models/valet"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Stage is a group of models whose foreign keys only reference earlier
// stages.
type Stage struct {
	Name   string
	Models []interface{}
}

// Stages lists every model in dependency order.
func Stages() []Stage {
	return []Stage{
		{Name: "core", Models: []interface{}{
			&user.User{},
			&user.Label{},
			&session.Session{},
			&settings.Settings{},
			&log.Log{},
		}},
		{Name: "accounts", Models: []interface{}{
			&user.Note{},
			&user.PasswordResetToken{},
			&valet.Employee{},
		}},
		{Name: "registrations", Models: []interface{}{
			&registration.Registration{},
			&registration.Attendance{},
			&invitation.Invite{},
			&email.Log{},
		}},
		{Name: "event extras", Models: []interface{}{
			&catering.Catering{},
			&sponsor.Sponsor{},
			&sponsor.Sponsorship{},
			&guest.Guest{},
			&guest.SessionGuest{},
			&suggestion.Suggestion{},
		}},
		{Name: "valet", Models: []interface{}{
			&valet.EmployeeSession{},
			&valet.Record{},
		}},
		{Name: "gallery", Models: []interface{}{
			&gallery.PhotoGallery{},
			&gallery.Image{},
			&gallery.FaceCluster{},
			&gallery.DetectedFace{},
		}},
	}
}

// AllModels flattens Stages.
func AllModels() []interface{} {
	var models []interface{}
	for _, stage := range Stages() {
		models = append(models, stage.Models...)
	}
	return models
}

// MigrationOperation is a pending schema change found by DetectChanges.
type MigrationOperation struct {
	Type        string // "create_table" or "add_column"
	TableName   string
	ColumnName  string
	Description string
}

// Migrator applies the staged models and reports drift.
type Migrator struct {
	db     *gorm.DB
	stages []Stage
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, stages: Stages()}
}

// Migrate runs AutoMigrate stage by stage.
func (m *Migrator) Migrate() error {
	for _, stage := range m.stages {
		for _, model := range stage.Models {
			if err := m.db.AutoMigrate(model); err != nil {
				return fmt.Errorf("failed to migrate %T (%s stage): %w", model, stage.Name, err)
			}
		}
		logger.Debug(fmt.Sprintf("Migration stage %q applied", stage.Name))
	}
	return nil
}

// DetectChanges lists the tables and columns the database is missing.
func (m *Migrator) DetectChanges() ([]MigrationOperation, error) {
	var operations []MigrationOperation
	cache := &sync.Map{}
	migrator := m.db.Migrator()

	for _, stage := range m.stages {
		for _, model := range stage.Models {
			s, err := schema.Parse(model, cache, m.db.NamingStrategy)
			if err != nil {
				return nil, fmt.Errorf("parse %T: %w", model, err)
			}

			if !migrator.HasTable(model) {
				operations = append(operations, MigrationOperation{
					Type:        "create_table",
					TableName:   s.Table,
					Description: fmt.Sprintf("Create table %s", s.Table),
				})
				continue
			}

			for _, field := range s.Fields {
				if field.DBName == "" {
					continue
				}
				if !migrator.HasColumn(model, field.DBName) {
					operations = append(operations, MigrationOperation{
						Type:        "add_column",
						TableName:   s.Table,
						ColumnName:  field.DBName,
						Description: fmt.Sprintf("Add column %s.%s", s.Table, field.DBName),
					})
				}
			}
		}
	}
	return operations, nil
}

// RunMigration logs pending drift, migrates and creates indexes.
func RunMigration(db *gorm.DB) error {
	migrator := NewMigrator(db)

	operations, err := migrator.DetectChanges()
	if err != nil {
		return err
	}
	for _, op := range operations {
		logger.Info(op.Description)
	}

	if err := migrator.Migrate(); err != nil {
		return err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(db); err != nil {
		return err
	}
	logger.Success("All indexes created successfully")
	return nil
}

// GenerateMigrationFile writes the pending operations to filename.
func GenerateMigrationFile(db *gorm.DB, filename string) error {
	operations, err := NewMigrator(db).DetectChanges()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Schema drift report generated %s\n", time.Now().Format(time.RFC3339))
	if len(operations) == 0 {
		b.WriteString("-- Schema is up to date\n")
	}
	for _, op := range operations {
		fmt.Fprintf(&b, "-- %s\n", op.Description)
	}
	return os.WriteFile(filename, []byte(b.String()), 0o644)
}
