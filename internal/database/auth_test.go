package database

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateUser(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if db.HasUsers(ctx) {
		t.Error("expected no users initially")
	}

	u, err := db.CreateUser(ctx, "alice", "secret", false)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == 0 || u.Username != "alice" || u.IsAdmin {
		t.Errorf("unexpected user %+v", u)
	}
	if !db.HasUsers(ctx) {
		t.Error("expected HasUsers after create")
	}

	if _, err := db.CreateUser(ctx, "ALICE", "other", false); err == nil {
		t.Error("usernames should be unique regardless of case")
	}
	if _, err := db.CreateUser(ctx, "bob", "", false); err == nil {
		t.Error("empty password should be rejected")
	}

	got, err := db.GetUserByName(ctx, "Alice")
	if err != nil || got.ID != u.ID {
		t.Errorf("GetUserByName() = %+v, %v", got, err)
	}
	if _, err := db.GetUserByName(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "correct horse", false); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"correct", "alice", "correct horse", false},
		{"wrong password", "alice", "battery staple", true},
		{"unknown user", "mallory", "correct horse", true},
		{"empty password", "alice", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := db.ValidatePassword(ctx, tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil || u.Username != "alice" {
				t.Errorf("ValidatePassword() = %+v, %v", u, err)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "alice", "secret", false)
	if err != nil {
		t.Fatal(err)
	}

	s, err := db.CreateSession(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(s.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(s.Token))
	}

	got, err := db.ValidateSession(ctx, s.Token)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if got.ID != u.ID || got.Username != "alice" {
		t.Errorf("session user = %+v", got)
	}

	if _, err := db.ValidateSession(ctx, "not-hex"); err == nil {
		t.Error("malformed token should fail")
	}
	if _, err := db.ValidateSession(ctx, strings.Repeat("ab", 32)); err == nil {
		t.Error("unknown token should fail")
	}

	if err := db.DeleteSession(ctx, s.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ValidateSession(ctx, s.Token); err == nil {
		t.Error("deleted session should not validate")
	}
}

func TestUpdatePassword_InvalidatesSessions(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	u, _ := db.CreateUser(ctx, "alice", "old", false)
	s, err := db.CreateSession(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpdatePassword(ctx, "alice", "new"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if _, err := db.ValidateSession(ctx, s.Token); err == nil {
		t.Error("session should be invalidated after password change")
	}
	if _, err := db.ValidatePassword(ctx, "alice", "old"); err == nil {
		t.Error("old password still valid")
	}
	if _, err := db.ValidatePassword(ctx, "alice", "new"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	if err := db.UpdatePassword(ctx, "nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCleanExpiredSessions(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	u, _ := db.CreateUser(ctx, "alice", "secret", false)
	live, _ := db.CreateSession(ctx, u.ID)

	if _, err := db.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		u.ID, "deadbeef", 1); err != nil {
		t.Fatal(err)
	}

	n, err := db.CleanExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanExpiredSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d sessions, want 1", n)
	}
	if _, err := db.ValidateSession(ctx, live.Token); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}
