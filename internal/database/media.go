package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-library/internal/decision"
	"media-library/internal/mediatypes"
)

// CreateLibrary registers a media root and returns it.
func (d *Database) CreateLibrary(ctx context.Context, name, rootPath string) (*Library, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_library", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx,
		`INSERT INTO libraries (name, root_path) VALUES (?, ?)`, name, rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get library id: %w", err)
	}

	return &Library{ID: id, Name: name, RootPath: rootPath, CreatedAt: time.Now()}, nil
}

// GetLibraryByName looks a library up by its case-insensitive name.
func (d *Database) GetLibraryByName(ctx context.Context, name string) (*Library, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_library", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var lib Library
	var created int64
	err = d.db.QueryRowContext(ctx,
		`SELECT id, name, root_path, created_at FROM libraries WHERE name = ?`, name,
	).Scan(&lib.ID, &lib.Name, &lib.RootPath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library: %w", err)
	}
	lib.CreatedAt = time.Unix(created, 0)
	return &lib, nil
}

// ListLibraries returns all libraries ordered by name.
func (d *Database) ListLibraries(ctx context.Context) ([]Library, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_libraries", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, root_path, created_at FROM libraries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		var lib Library
		var created int64
		if err = rows.Scan(&lib.ID, &lib.Name, &lib.RootPath, &created); err != nil {
			return nil, fmt.Errorf("failed to scan library: %w", err)
		}
		lib.CreatedAt = time.Unix(created, 0)
		libs = append(libs, lib)
	}
	err = rows.Err()
	return libs, err
}

// UpsertMedia inserts or updates the probed record for d.Path and returns
// its id. The id is stable across updates.
func (d *Database) UpsertMedia(ctx context.Context, m decision.MediaDescriptor) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var fastStart sql.NullBool
	if m.FastStart != nil {
		fastStart = sql.NullBool{Bool: *m.FastStart, Valid: true}
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO media (library_id, path, type, video_codec, audio_codec, container,
			width, height, duration, fast_start)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			library_id = excluded.library_id,
			type = excluded.type,
			video_codec = excluded.video_codec,
			audio_codec = excluded.audio_codec,
			container = excluded.container,
			width = excluded.width,
			height = excluded.height,
			duration = excluded.duration,
			fast_start = excluded.fast_start,
			updated_at = strftime('%s', 'now')
	`, m.LibraryID, m.Path, string(m.Type), m.VideoCodec, m.AudioCodec, m.Container,
		m.Width, m.Height, m.Duration, fastStart)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert media: %w", err)
	}

	// LastInsertId is unreliable for the update branch of an upsert.
	var id int64
	err = d.db.QueryRowContext(ctx, `SELECT id FROM media WHERE path = ?`, m.Path).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read media id: %w", err)
	}
	return id, nil
}

// GetMediaDescriptor loads the stream decision inputs for a media id.
func (d *Database) GetMediaDescriptor(ctx context.Context, id int64) (decision.MediaDescriptor, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m decision.MediaDescriptor
	var fileType string
	var fastStart sql.NullBool
	err = d.db.QueryRowContext(ctx, `
		SELECT id, library_id, path, type, video_codec, audio_codec, container,
			width, height, duration, fast_start
		FROM media WHERE id = ?
	`, id).Scan(&m.ID, &m.LibraryID, &m.Path, &fileType, &m.VideoCodec, &m.AudioCodec,
		&m.Container, &m.Width, &m.Height, &m.Duration, &fastStart)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return decision.MediaDescriptor{}, err
	}
	if err != nil {
		return decision.MediaDescriptor{}, fmt.Errorf("failed to get media %d: %w", id, err)
	}

	m.Type = mediatypes.FileType(fileType)
	if fastStart.Valid {
		v := fastStart.Bool
		m.FastStart = &v
	}
	return m, nil
}

// CountMedia returns the number of catalogued files.
func (d *Database) CountMedia(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&n)
	return n, err
}
