package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	catalogsync "github.com/nikhilrc-dev/ct-vertex-sync/internal/sync"
)

// Store persists full sync run history and the per-resource version guard
// used to discard stale webhook deliveries. The sync pipeline itself is
// stateless; losing this database loses history and ordering protection,
// nothing else.
type Store struct {
	db *gorm.DB
}

type SyncRun struct {
	ID             string    `gorm:"primaryKey;column:id"`
	StartedAt      time.Time `gorm:"column:started_at"`
	DurationMs     int64     `gorm:"column:duration_ms"`
	TotalProducts  int       `gorm:"column:total_products"`
	ProcessedCount int       `gorm:"column:processed_count"`
	ErrorCount     int       `gorm:"column:error_count"`
	Errors         string    `gorm:"column:errors"`
}

type ResourceVersion struct {
	ResourceID string    `gorm:"primaryKey;column:resource_id"`
	Version    int64     `gorm:"column:version"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func New(databaseURL string) (*Store, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP,
		duration_ms BIGINT,
		total_products INTEGER,
		processed_count INTEGER,
		error_count INTEGER,
		errors TEXT
	);

	CREATE TABLE IF NOT EXISTS resource_versions (
		resource_id TEXT PRIMARY KEY,
		version BIGINT NOT NULL,
		updated_at TIMESTAMP
	);
	`
	if err := db.Exec(createTablesSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordRun saves the final summary of one full sync run.
func (s *Store) RecordRun(summary *catalogsync.Summary) error {
	errorsJSON := ""
	if len(summary.Errors) > 0 {
		raw, err := json.Marshal(summary.Errors)
		if err != nil {
			return fmt.Errorf("failed to marshal batch errors: %w", err)
		}
		errorsJSON = string(raw)
	}

	run := &SyncRun{
		ID:             summary.RunID,
		StartedAt:      summary.StartedAt,
		DurationMs:     summary.Duration,
		TotalProducts:  summary.TotalProducts,
		ProcessedCount: summary.ProcessedCount,
		ErrorCount:     summary.ErrorCount,
		Errors:         errorsJSON,
	}
	return s.db.Create(run).Error
}

// ShouldApply reports whether an upsert at the given source version is still
// current. Unknown resources always apply.
func (s *Store) ShouldApply(resourceID string, version int64) (bool, error) {
	var record ResourceVersion
	err := s.db.First(&record, "resource_id = ?", resourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return version >= record.Version, nil
}

// MarkApplied records the version just written to the destination.
func (s *Store) MarkApplied(resourceID string, version int64) error {
	record := &ResourceVersion{
		ResourceID: resourceID,
		Version:    version,
		UpdatedAt:  time.Now(),
	}
	return s.db.Save(record).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
