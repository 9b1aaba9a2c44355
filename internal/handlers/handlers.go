package handlers

import (
	"context"
	"time"

	"media-library/internal/cache"
	"media-library/internal/database"
	"media-library/internal/decision"
	"media-library/internal/hls"
	"media-library/internal/queue"
	"media-library/internal/transcoder"
)

// Store is the catalog, authorization and session backend.
// *database.Database implements it.
type Store interface {
	GetMediaDescriptor(ctx context.Context, id int64) (decision.MediaDescriptor, error)
	CheckLibraryAccess(ctx context.Context, userID, libraryID int64) error
	ValidatePassword(ctx context.Context, username, password string) (*database.User, error)
	CreateSession(ctx context.Context, userID int64) (*database.Session, error)
	ValidateSession(ctx context.Context, token string) (*database.User, error)
	DeleteSession(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// Options holds delivery settings that do not belong to a collaborator.
type Options struct {
	SegmentSeconds int
	// RetryAfter is sent with 503 queue-full responses.
	RetryAfter time.Duration
}

// Handlers serves media delivery and the supporting API.
type Handlers struct {
	store    Store
	pipeline *transcoder.Pipeline
	cache    *cache.Manager
	queue    *queue.Queue
	opts     Options
	started  time.Time
}

// New creates the handler set. pipeline may be disabled; its cache is used
// for lookups.
func New(store Store, pipeline *transcoder.Pipeline, q *queue.Queue, opts Options) *Handlers {
	if opts.SegmentSeconds <= 0 {
		opts.SegmentSeconds = hls.DefaultSegmentSeconds
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 2 * time.Second
	}
	return &Handlers{
		store:    store,
		pipeline: pipeline,
		cache:    pipeline.Cache(),
		queue:    q,
		opts:     opts,
		started:  time.Now(),
	}
}
