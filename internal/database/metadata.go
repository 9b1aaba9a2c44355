package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastCacheSweepKey = "last_cache_sweep"

// GetMetadata returns the value stored under key, or ErrNotFound.
func (d *Database) GetMetadata(ctx context.Context, key string) (value string, err error) {
	start := time.Now()
	defer func() { recordQuery("get_metadata", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var v sql.NullString
	err = d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v.String, err
}

// SetMetadata stores value under key, replacing any previous value.
func (d *Database) SetMetadata(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_metadata", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastCacheSweep returns when partial cache files were last removed,
// or the zero time if that never happened.
func (d *Database) GetLastCacheSweep(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastCacheSweepKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, err
	case value == "":
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastCacheSweep records the time of a partial-file sweep.
func (d *Database) SetLastCacheSweep(ctx context.Context, t time.Time) error {
	value := ""
	if !t.IsZero() {
		value = t.UTC().Format(time.RFC3339)
	}
	return d.SetMetadata(ctx, lastCacheSweepKey, value)
}
