package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Journal records conversions in a SQLite database
type Journal struct {
	*sql.DB
	runID string
}

// Open opens the journal database, creating it and its schema if needed.
// Every Journal value gets a fresh run ID that tags the entries it records.
func Open(dbPath string) (*Journal, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// The _time_format=sqlite parameter tells the driver to parse RFC3339 timestamps
	dsn := dbPath + "?_time_format=sqlite"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	sqlDB.SetMaxOpenConns(1) // SQLite works best with single connection
	sqlDB.SetMaxIdleConns(1)

	j := &Journal{DB: sqlDB, runID: uuid.NewString()}

	if err := j.initSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// initSchema creates all tables, indexes, and triggers
func (j *Journal) initSchema() error {
	if _, err := j.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// RunID identifies the entries recorded through this Journal
func (j *Journal) RunID() string {
	return j.runID
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.DB.Close()
}
