package streaming

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"media-library/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write took longer than WriteTimeout or
	// that no data flowed for IdleTimeout. The client is too slow to keep.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled because
	// the client went away.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed by its owner.
	ErrStreamCanceled = errors.New("stream canceled")
)

var log = logging.For("stream")

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout bounds a single chunk write.
	WriteTimeout time.Duration
	// IdleTimeout bounds the gap between successful writes.
	IdleTimeout time.Duration
	// MaxDuration caps the whole stream (0 = unlimited).
	MaxDuration time.Duration
	// ChunkSize splits large writes; each chunk is flushed (0 = no split).
	ChunkSize int
	// OnProgress is called about once per MiB with the running total.
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultTimeoutWriterConfig returns sensible defaults.
// A transcode at low quality on slow hardware can take several seconds to
// emit its first fragment, so the idle timeout is generous.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter is the client side of a piped stream. A stalled or vanished
// client turns into an error from Write instead of a goroutine blocked
// forever, and every chunk is flushed so playback can start early.
//
// When the connection supports write deadlines (reached through the
// middleware Unwrap chain) they bound each chunk. Otherwise each chunk is
// written from a helper goroutine raced against a timer.
type TimeoutWriter struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	deadlines bool
	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	config    TimeoutWriterConfig

	mu        sync.Mutex
	start     time.Time
	lastWrite time.Time
	written   int64
	closed    bool
	timedOut  bool
}

// NewTimeoutWriter wraps w for the lifetime of ctx, normally the request
// context. Close it when the stream ends.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	rc := http.NewResponseController(w)

	now := time.Now()
	tw := &TimeoutWriter{
		w:         w,
		rc:        rc,
		deadlines: rc.SetWriteDeadline(time.Time{}) == nil,
		parent:    ctx,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		start:     now,
		lastWrite: now,
	}

	if config.IdleTimeout > 0 {
		go tw.watchIdle()
	}
	return tw
}

// Write sends p in chunks, flushing after each one.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if err := tw.usable(); err != nil {
			return total, err
		}

		size := len(p)
		if tw.config.ChunkSize > 0 && size > tw.config.ChunkSize {
			size = tw.config.ChunkSize
		}

		n, err := tw.writeChunk(p[:size])
		total += n
		if err != nil {
			return total, err
		}
		_ = tw.rc.Flush()
		p = p[size:]
	}
	return total, nil
}

// usable returns the error a write would hit right now, if any.
func (tw *TimeoutWriter) usable() error {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return ErrStreamCanceled
	}
	if tw.ctx.Err() != nil {
		return tw.contextError()
	}
	if tw.config.MaxDuration > 0 && time.Since(tw.start) > tw.config.MaxDuration {
		tw.expire()
		return ErrWriteTimeout
	}
	return nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	var n int
	var err error
	if tw.deadlines {
		_ = tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout))
		n, err = tw.w.Write(p)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			tw.expire()
			err = ErrWriteTimeout
		}
	} else {
		n, err = tw.writeRaced(p)
	}

	if n > 0 {
		tw.record(n)
	}
	return n, err
}

// writeRaced writes p from a helper goroutine so a writer without deadline
// support cannot block the caller past WriteTimeout.
func (tw *TimeoutWriter) writeRaced(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := tw.w.Write(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(tw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.n, r.err
	case <-timer.C:
		tw.expire()
		return 0, ErrWriteTimeout
	case <-tw.ctx.Done():
		return 0, tw.contextError()
	}
}

func (tw *TimeoutWriter) record(n int) {
	tw.mu.Lock()
	before := tw.written
	tw.written += int64(n)
	total := tw.written
	tw.lastWrite = time.Now()
	tw.mu.Unlock()

	if tw.config.OnProgress != nil && before>>20 != total>>20 {
		tw.config.OnProgress(total, time.Since(tw.start))
	}
}

func (tw *TimeoutWriter) expire() {
	tw.mu.Lock()
	tw.timedOut = true
	tw.mu.Unlock()
	tw.cancel()
}

func (tw *TimeoutWriter) watchIdle() {
	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-tw.ctx.Done():
			return
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			tw.mu.Unlock()

			if idle > tw.config.IdleTimeout {
				log.Warn("Stream idle timeout exceeded: %v", idle)
				tw.expire()
				return
			}
		}
	}
}

// contextError tells apart the three ways the writer's context ends.
func (tw *TimeoutWriter) contextError() error {
	if tw.parent.Err() != nil {
		return ErrClientGone
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return ErrWriteTimeout
	}
	return ErrStreamCanceled
}

// Done is closed when the writer can no longer deliver data.
func (tw *TimeoutWriter) Done() <-chan struct{} {
	return tw.ctx.Done()
}

// Close stops the writer and clears any write deadline it set. It is safe
// to call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	if tw.closed {
		tw.mu.Unlock()
		return nil
	}
	tw.closed = true
	tw.mu.Unlock()

	tw.cancel()
	if tw.deadlines {
		_ = tw.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Stats returns the bytes delivered and the time since the writer was created.
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.written, time.Since(tw.start)
}

// IsDisconnect reports whether err means the client stopped listening
// rather than something failing on the server.
func IsDisconnect(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrClientGone),
		errors.Is(err, ErrWriteTimeout),
		errors.Is(err, ErrStreamCanceled),
		errors.Is(err, context.Canceled),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return true
	default:
		return false
	}
}
