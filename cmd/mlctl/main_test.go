package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-library/internal/database"
)

func setupEnv(t *testing.T, passwords ...string) (*env, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(dir, "media.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})

	out := &bytes.Buffer{}
	answers := passwords
	return &env{
		db:       db,
		cacheDir: filepath.Join(dir, "cache", "transcoded"),
		out:      out,
		readPassword: func(string) ([]byte, error) {
			if len(answers) == 0 {
				return nil, errors.New("no more input")
			}
			next := answers[0]
			answers = answers[1:]
			return []byte(next), nil
		},
	}, out
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"status", "status"},
		{"add-user_2", "add-user_2"},
		{"rm -rf /", "rm_-rf__"},
		{"\x1b[31mred", "__31mred"},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	for _, name := range commandOrder {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("usage does not mention %s", name)
		}
	}
	if len(commandOrder) != len(commands) {
		t.Errorf("commandOrder lists %d commands, %d registered", len(commandOrder), len(commands))
	}
}

func TestAddUser(t *testing.T) {
	e, out := setupEnv(t, "hunter22", "hunter22")
	ctx := context.Background()

	if err := addUser(ctx, e, []string{"-admin", "alice"}); err != nil {
		t.Fatalf("addUser() error = %v", err)
	}
	if !strings.Contains(out.String(), "Created admin alice") {
		t.Errorf("unexpected output %q", out.String())
	}

	user, err := e.db.ValidatePassword(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("ValidatePassword() error = %v", err)
	}
	if !user.IsAdmin {
		t.Error("user should be an admin")
	}
}

func TestAddUser_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		passwords []string
		wantUsage bool
	}{
		{"no username", nil, nil, true},
		{"two usernames", []string{"a", "b"}, nil, true},
		{"mismatch", []string{"bob"}, []string{"hunter22", "hunter23"}, false},
		{"too short", []string{"bob"}, []string{"abc", "abc"}, false},
		{"no input", []string{"bob"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := setupEnv(t, tt.passwords...)
			err := addUser(context.Background(), e, tt.args)
			if err == nil {
				t.Fatal("addUser() should fail")
			}
			if errors.Is(err, errUsage) != tt.wantUsage {
				t.Errorf("usage error = %v, want %v (%v)", errors.Is(err, errUsage), tt.wantUsage, err)
			}
			if e.db.HasUsers(context.Background()) {
				t.Error("no user should have been created")
			}
		})
	}
}

func TestSetPassword(t *testing.T) {
	e, _ := setupEnv(t, "newpass1", "newpass1")
	ctx := context.Background()

	if _, err := e.db.CreateUser(ctx, "carol", "oldpass1", false); err != nil {
		t.Fatal(err)
	}
	if err := setPassword(ctx, e, []string{"carol"}); err != nil {
		t.Fatalf("setPassword() error = %v", err)
	}
	if _, err := e.db.ValidatePassword(ctx, "carol", "newpass1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := e.db.ValidatePassword(ctx, "carol", "oldpass1"); err == nil {
		t.Error("old password still accepted")
	}
}

func TestSetPassword_UnknownUser(t *testing.T) {
	e, _ := setupEnv(t, "newpass1", "newpass1")
	err := setPassword(context.Background(), e, []string{"nobody"})
	if err == nil || !strings.Contains(err.Error(), "nobody") {
		t.Errorf("expected an unknown user error, got %v", err)
	}
}

func TestGrantAndRevoke(t *testing.T) {
	e, _ := setupEnv(t)
	ctx := context.Background()

	root := t.TempDir()
	if err := addLibrary(ctx, e, []string{"movies", root}); err != nil {
		t.Fatalf("addLibrary() error = %v", err)
	}
	user, err := e.db.CreateUser(ctx, "dave", "password1", false)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := e.db.GetLibraryByName(ctx, "movies")
	if err != nil {
		t.Fatal(err)
	}

	if err := e.db.CheckLibraryAccess(ctx, user.ID, lib.ID); !errors.Is(err, database.ErrAccessDenied) {
		t.Fatalf("access before grant: %v, want ErrAccessDenied", err)
	}

	if err := grant(ctx, e, []string{"dave", "movies"}); err != nil {
		t.Fatalf("grant() error = %v", err)
	}
	if err := e.db.CheckLibraryAccess(ctx, user.ID, lib.ID); err != nil {
		t.Errorf("access after grant: %v", err)
	}

	if err := revoke(ctx, e, []string{"dave", "movies"}); err != nil {
		t.Fatalf("revoke() error = %v", err)
	}
	if err := e.db.CheckLibraryAccess(ctx, user.ID, lib.ID); !errors.Is(err, database.ErrAccessDenied) {
		t.Errorf("access after revoke: %v, want ErrAccessDenied", err)
	}

	if err := grant(ctx, e, []string{"dave", "tv"}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("grant on unknown library: %v, want ErrNotFound", err)
	}
}

func TestAddLibrary_NotADirectory(t *testing.T) {
	e, _ := setupEnv(t)
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := addLibrary(context.Background(), e, []string{"bad", file}); err == nil {
		t.Error("addLibrary() should reject a file")
	}
}

func TestAddMedia(t *testing.T) {
	e, out := setupEnv(t)
	ctx := context.Background()
	e.ffprobe = writeScript(t, "ffprobe", `cat <<'JSON'
{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"format_name": "matroska,webm", "duration": "42.0"}
}
JSON`)

	root := t.TempDir()
	inside := filepath.Join(root, "film.mkv")
	if err := os.WriteFile(inside, []byte("mkv"), 0o644); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "other.mkv")
	if err := os.WriteFile(outside, []byte("mkv"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := addLibrary(ctx, e, []string{"films", root}); err != nil {
		t.Fatal(err)
	}

	err := addMedia(ctx, e, []string{"films", inside, outside})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("addMedia() error = %v, want 1 of 2 files not added", err)
	}
	if !strings.Contains(out.String(), "remux") {
		t.Errorf("output should show the remux decision: %q", out.String())
	}

	count, err := e.db.CountMedia(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountMedia() = %d, want 1", count)
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/media", "/media/a.mkv", true},
		{"/media", "/media/sub/a.mkv", true},
		{"/media", "/media", true},
		{"/media", "/mediaother/a.mkv", false},
		{"/media", "/tmp/a.mkv", false},
		{"/media", "/media/../etc/passwd", false},
	}
	for _, tt := range tests {
		if got := within(tt.root, filepath.Clean(tt.path)); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestSweepAndStatus(t *testing.T) {
	e, out := setupEnv(t)
	ctx := context.Background()

	partial := filepath.Join(e.cacheDir, "ab", "cd", "1", "remux.mp4.0000.partial")
	if err := os.MkdirAll(filepath.Dir(partial), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(partial, []byte("half"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := showStatus(ctx, e, nil); err != nil {
		t.Fatalf("showStatus() error = %v", err)
	}
	if !strings.Contains(out.String(), "Last sweep: never") {
		t.Errorf("status before sweep: %q", out.String())
	}

	out.Reset()
	if err := sweep(ctx, e, nil); err != nil {
		t.Fatalf("sweep() error = %v", err)
	}
	if !strings.Contains(out.String(), "Removed 1 partial files") {
		t.Errorf("sweep output: %q", out.String())
	}
	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Error("partial file survived the sweep")
	}

	out.Reset()
	if err := showStatus(ctx, e, nil); err != nil {
		t.Fatalf("showStatus() error = %v", err)
	}
	if strings.Contains(out.String(), "Last sweep: never") {
		t.Error("status should report the sweep")
	}
	if !strings.Contains(out.String(), "Cache:      0 files") {
		t.Errorf("status cache line: %q", out.String())
	}
}
