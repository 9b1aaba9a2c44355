package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied is returned when a user may not read a library.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Database is the SQLite catalog: libraries, media records, users and
// sessions.
type Database struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if needed) the database file at dbPath and brings
// its schema up to date. The parent directory must already exist.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)
	checkFileModes(dbPath)

	// WAL lets the delivery path read while mlctl writes.
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db}
	if err := d.setup(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after setup failure: %v", closeErr)
		}
		return nil, err
	}

	logging.Info("Database ready at %s", dbPath)
	return d, nil
}

func (d *Database) setup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	d.db.SetMaxOpenConns(25)
	d.db.SetMaxIdleConns(10)
	d.db.SetConnMaxLifetime(time.Hour)

	if err := d.migrate(ctx); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks the connection; used by the readiness probe.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// recordQuery records database query metrics. Lookups that find nothing or
// deny access are answers, not failures.
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAccessDenied) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// checkFileModes warns about database files that cannot be written, a
// common result of copying a volume between containers, and restores
// owner write on the WAL and shared-memory files.
func checkFileModes(dbPath string) {
	if info, err := os.Stat(filepath.Dir(dbPath)); err == nil {
		logging.Debug("Database directory: %s (mode: %v)", filepath.Dir(dbPath), info.Mode())
	}

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil || info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only (mode %v), writes will fail", path, info.Mode())
		if path == dbPath {
			continue
		}
		if err := os.Chmod(path, info.Mode().Perm()|0o200); err != nil {
			logging.Error("Failed to fix permissions on %s: %v", path, err)
		} else {
			logging.Info("Fixed permissions on %s", path)
		}
	}
}
