package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"media-library/internal/decision"
	"media-library/internal/mediatypes"
)

func setupTestDB(t *testing.T) (*Database, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dbPath
}

func boolPtr(b bool) *bool { return &b }

func TestNew_ReopenRunsMigrationsOnce(t *testing.T) {
	db, dbPath := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db2.Close()

	if err := db2.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestMigrate_RecordsSchemaVersion(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	v, err := db.schemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}

	if err := db.migrate(ctx); err != nil {
		t.Errorf("second migrate() error = %v", err)
	}
}

func TestMigrate_RejectsNewerSchema(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.db.ExecContext(ctx, "PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	if err := db.migrate(ctx); err == nil {
		t.Error("migrate() should refuse a schema from a newer build")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "nope", "x.db"))
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestLibraries(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	lib, err := db.CreateLibrary(ctx, "Movies", "/media/movies")
	if err != nil {
		t.Fatalf("CreateLibrary() error = %v", err)
	}
	if _, err := db.CreateLibrary(ctx, "shows", "/media/shows"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetLibraryByName(ctx, "movies")
	if err != nil {
		t.Fatalf("GetLibraryByName() error = %v", err)
	}
	if got.ID != lib.ID || got.RootPath != "/media/movies" {
		t.Errorf("got %+v, want id %d", got, lib.ID)
	}

	if _, err := db.CreateLibrary(ctx, "MOVIES", "/elsewhere"); err == nil {
		t.Error("duplicate library name should fail")
	}

	if _, err := db.GetLibraryByName(ctx, "music"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	libs, err := db.ListLibraries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 2 || libs[0].Name != "Movies" || libs[1].Name != "shows" {
		t.Errorf("ListLibraries() = %+v", libs)
	}
}

func TestUpsertAndGetMediaDescriptor(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	lib, err := db.CreateLibrary(ctx, "Movies", "/media/movies")
	if err != nil {
		t.Fatal(err)
	}

	in := decision.MediaDescriptor{
		LibraryID:  lib.ID,
		Path:       "/media/movies/a.mp4",
		Type:       mediatypes.FileTypeVideo,
		VideoCodec: "h264",
		AudioCodec: "aac",
		Container:  "mov,mp4,m4a,3gp,3g2,mj2",
		Width:      1920,
		Height:     1080,
		Duration:   93.5,
		FastStart:  boolPtr(false),
	}

	id, err := db.UpsertMedia(ctx, in)
	if err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}

	got, err := db.GetMediaDescriptor(ctx, id)
	if err != nil {
		t.Fatalf("GetMediaDescriptor() error = %v", err)
	}
	if got.ID != id || got.LibraryID != lib.ID || got.Path != in.Path {
		t.Errorf("identity mismatch: %+v", got)
	}
	if got.Type != mediatypes.FileTypeVideo || got.VideoCodec != "h264" || got.AudioCodec != "aac" {
		t.Errorf("codec mismatch: %+v", got)
	}
	if got.Width != 1920 || got.Height != 1080 || got.Duration != 93.5 {
		t.Errorf("dimensions mismatch: %+v", got)
	}
	if got.FastStart == nil || *got.FastStart {
		t.Errorf("FastStart = %v, want false", got.FastStart)
	}

	// Re-probe after a faststart rewrite keeps the id.
	in.FastStart = boolPtr(true)
	id2, err := db.UpsertMedia(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Errorf("upsert changed id: %d -> %d", id, id2)
	}
	got, _ = db.GetMediaDescriptor(ctx, id)
	if got.FastStart == nil || !*got.FastStart {
		t.Errorf("FastStart = %v, want true", got.FastStart)
	}

	n, err := db.CountMedia(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountMedia() = %d, %v; want 1", n, err)
	}
}

func TestGetMediaDescriptor_UnknownFastStart(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	lib, _ := db.CreateLibrary(ctx, "Music", "/media/music")
	id, err := db.UpsertMedia(ctx, decision.MediaDescriptor{
		LibraryID:  lib.ID,
		Path:       "/media/music/a.flac",
		Type:       mediatypes.FileTypeAudio,
		AudioCodec: "flac",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := db.GetMediaDescriptor(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.FastStart != nil {
		t.Errorf("FastStart = %v, want nil", *got.FastStart)
	}
}

func TestGetMediaDescriptor_NotFound(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := db.GetMediaDescriptor(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckLibraryAccess(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	movies, _ := db.CreateLibrary(ctx, "Movies", "/media/movies")
	private, _ := db.CreateLibrary(ctx, "Private", "/media/private")

	alice, err := db.CreateUser(ctx, "alice", "pw-alice", false)
	if err != nil {
		t.Fatal(err)
	}
	admin, err := db.CreateUser(ctx, "root", "pw-root", true)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.CheckLibraryAccess(ctx, alice.ID, movies.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("ungranted user: expected ErrAccessDenied, got %v", err)
	}

	if err := db.GrantLibraryAccess(ctx, alice.ID, movies.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.GrantLibraryAccess(ctx, alice.ID, movies.ID); err != nil {
		t.Errorf("second grant should be a no-op, got %v", err)
	}

	if err := db.CheckLibraryAccess(ctx, alice.ID, movies.ID); err != nil {
		t.Errorf("granted user denied: %v", err)
	}
	if err := db.CheckLibraryAccess(ctx, alice.ID, private.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("other library: expected ErrAccessDenied, got %v", err)
	}
	if err := db.CheckLibraryAccess(ctx, admin.ID, private.ID); err != nil {
		t.Errorf("admin denied: %v", err)
	}
	if err := db.CheckLibraryAccess(ctx, 999, movies.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("unknown user: expected ErrAccessDenied, got %v", err)
	}

	if err := db.RevokeLibraryAccess(ctx, alice.ID, movies.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.CheckLibraryAccess(ctx, alice.ID, movies.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("revoked user: expected ErrAccessDenied, got %v", err)
	}
}

func TestMetadata_LastCacheSweep(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	got, err := db.GetLastCacheSweep(ctx)
	if err != nil || !got.IsZero() {
		t.Fatalf("initial sweep = %v, %v; want zero", got, err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetLastCacheSweep(ctx, now); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetLastCacheSweep(ctx)
	if err != nil || !got.Equal(now) {
		t.Errorf("sweep = %v, %v; want %v", got, err, now)
	}

	if err := db.SetLastCacheSweep(ctx, time.Time{}); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetLastCacheSweep(ctx)
	if !got.IsZero() {
		t.Errorf("cleared sweep = %v, want zero", got)
	}

	if _, err := db.GetMetadata(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
