package database

import (
	"context"
	"fmt"
	"time"

	"media-library/internal/metrics"
)

// GrantLibraryAccess allows a user to read a library. Granting twice is
// a no-op.
func (d *Database) GrantLibraryAccess(ctx context.Context, userID, libraryID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("grant_access", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO library_access (user_id, library_id) VALUES (?, ?)`,
		userID, libraryID)
	if err != nil {
		return fmt.Errorf("failed to grant access: %w", err)
	}
	return nil
}

// RevokeLibraryAccess removes a grant.
func (d *Database) RevokeLibraryAccess(ctx context.Context, userID, libraryID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("revoke_access", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		`DELETE FROM library_access WHERE user_id = ? AND library_id = ?`,
		userID, libraryID)
	if err != nil {
		return fmt.Errorf("failed to revoke access: %w", err)
	}
	return nil
}

// CheckLibraryAccess returns nil if the user may read the library and
// ErrAccessDenied otherwise. Admins can read every library.
func (d *Database) CheckLibraryAccess(ctx context.Context, userID, libraryID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("check_access", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var allowed bool
	err = d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users u
			WHERE u.id = ? AND (
				u.is_admin = 1 OR EXISTS (
					SELECT 1 FROM library_access a
					WHERE a.user_id = u.id AND a.library_id = ?
				)
			)
		)
	`, userID, libraryID).Scan(&allowed)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}

	if !allowed {
		metrics.AccessDeniedTotal.Inc()
		err = ErrAccessDenied
		return err
	}
	return nil
}
