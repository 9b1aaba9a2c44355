package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// ErrQueueFull is returned when no slot frees up within the admission wait.
var ErrQueueFull = errors.New("transcode queue full")

const (
	DefaultWait = 2 * time.Second
	DefaultPoll = 250 * time.Millisecond
)

var log = logging.For("queue")

// Queue caps the number of concurrent transcode processes. Remux never
// goes through it.
type Queue struct {
	sem    *semaphore.Weighted
	limit  int
	active atomic.Int64
	wait   time.Duration
	poll   time.Duration
}

// New creates a queue with n slots. Admission polls every poll interval for
// at most wait before giving up.
func New(n int, wait, poll time.Duration) *Queue {
	if n < 1 {
		n = 1
	}
	if wait < 0 {
		wait = 0
	}
	if poll <= 0 {
		poll = DefaultPoll
	}
	metrics.QueueSlotsLimit.Set(float64(n))
	return &Queue{
		sem:   semaphore.NewWeighted(int64(n)),
		limit: n,
		wait:  wait,
		poll:  poll,
	}
}

// Limit returns the number of slots.
func (q *Queue) Limit() int { return q.limit }

// Active returns the number of slots held.
func (q *Queue) Active() int { return int(q.active.Load()) }

// CanStart reports whether a slot is free right now.
func (q *Queue) CanStart() bool { return q.Active() < q.limit }

// TryAcquire takes a slot without waiting.
func (q *Queue) TryAcquire() (*Slot, bool) {
	if !q.sem.TryAcquire(1) {
		return nil, false
	}
	n := q.active.Add(1)
	metrics.QueueSlotsInUse.Set(float64(n))
	return &Slot{q: q}, true
}

// Acquire waits up to the queue's admission wait for a slot.
func (q *Queue) Acquire(ctx context.Context) (*Slot, error) {
	slot, _, err := q.AcquireOrServe(ctx, nil)
	return slot, err
}

// AcquireOrServe is Acquire with a second way out: before every attempt it
// calls ready, and if ready reports true it returns (nil, true, nil) without
// taking a slot. Callers pass a cache check so a request that lost the race
// for the last slot can serve the winner's output instead.
func (q *Queue) AcquireOrServe(ctx context.Context, ready func() bool) (*Slot, bool, error) {
	start := time.Now()
	deadline := start.Add(q.wait)

	for {
		if ready != nil && ready() {
			return nil, true, nil
		}
		if slot, ok := q.TryAcquire(); ok {
			metrics.QueueWaitDuration.Observe(time.Since(start).Seconds())
			return slot, false, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			metrics.QueueRejectionsTotal.Inc()
			log.Debug("No transcode slot after %v (%d/%d in use)", q.wait, q.Active(), q.limit)
			return nil, false, ErrQueueFull
		}

		delay := q.poll
		if remaining < delay {
			delay = remaining
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}
}

// Slot is one held transcode permit.
type Slot struct {
	q    *Queue
	once sync.Once
}

// Release returns the slot. Calling it more than once is safe.
func (s *Slot) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		n := s.q.active.Add(-1)
		s.q.sem.Release(1)
		metrics.QueueSlotsInUse.Set(float64(n))
	})
}
