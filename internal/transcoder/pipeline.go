package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"media-library/internal/cache"
	"media-library/internal/decision"
	"media-library/internal/logging"
	"media-library/internal/metrics"
	"media-library/internal/queue"
)

var (
	// ErrProcessFailed means ffmpeg exited non-zero or its output could not
	// be read. The wrapped message carries the tail of its stderr.
	ErrProcessFailed = errors.New("transcode process failed")
	// ErrSpawn means ffmpeg could not be started.
	ErrSpawn = errors.New("failed to start transcode process")
	// ErrDisabled is returned when the cache directory is not writable.
	ErrDisabled = errors.New("transcoding disabled")
)

// Kind is the type of work a Job does.
type Kind string

const (
	KindRemux     Kind = "remux"
	KindTranscode Kind = "transcode"
	KindSegment   Kind = "segment"
)

// Job describes one ffmpeg invocation.
type Job struct {
	MediaID int64
	// Variant is the cache key the output is stored under.
	Variant string
	Kind    Kind
	Source  string
	// Container is the remux output container ("mp4" or "webm").
	Container string
	Quality   decision.Quality
	// Start and Duration bound a segment job, in seconds.
	Start    float64
	Duration float64
	// Slot, when set, is released when Run returns.
	Slot *queue.Slot
}

// Args returns the ffmpeg arguments for the job.
func (j Job) Args() ([]string, error) {
	switch j.Kind {
	case KindRemux:
		return RemuxArgs(j.Source, j.Container), nil
	case KindTranscode, KindSegment:
		p, ok := decision.PresetFor(j.Quality)
		if !ok {
			return nil, fmt.Errorf("no preset for quality %q", j.Quality)
		}
		if j.Kind == KindSegment {
			return SegmentArgs(j.Source, p, j.Start, j.Duration), nil
		}
		return TranscodeArgs(j.Source, p), nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", j.Kind)
	}
}

// Config configures a Pipeline.
type Config struct {
	FFmpegPath string
	Cache      *cache.Manager
	// Enabled is false when the cache directory is not writable.
	Enabled bool
	// WaitDelay bounds how long Wait waits for output pipes after a kill.
	WaitDelay time.Duration
}

// Pipeline runs ffmpeg jobs, streaming stdout to a client while writing the
// same bytes to the cache.
type Pipeline struct {
	ffmpeg    string
	cache     *cache.Manager
	enabled   bool
	waitDelay time.Duration
	registry  *registry
}

var log = logging.For("pipeline")

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = 2 * time.Second
	}
	return &Pipeline{
		ffmpeg:    cfg.FFmpegPath,
		cache:     cfg.Cache,
		enabled:   cfg.Enabled,
		waitDelay: cfg.WaitDelay,
		registry:  newRegistry(),
	}
}

// IsEnabled returns whether transcoding is enabled.
func (p *Pipeline) IsEnabled() bool {
	return p.enabled
}

// Cache returns the cache the pipeline fills.
func (p *Pipeline) Cache() *cache.Manager {
	return p.cache
}

// Run executes job and streams its stdout to w, filling the cache on the
// side. The process is killed with SIGKILL as soon as ctx is canceled or a
// write to w fails. A cache entry is promoted only when ffmpeg exits 0 and
// every byte reached the cache file; otherwise the temp file is removed.
//
// When the context ends or the client stops reading, the returned error
// wraps the cause (context.Canceled or a streaming error) and is not a
// server failure.
func (p *Pipeline) Run(ctx context.Context, job Job, w io.Writer) error {
	defer job.Slot.Release()

	if !p.enabled {
		return ErrDisabled
	}

	args, err := job.Args()
	if err != nil {
		return err
	}

	start := time.Now()
	kind := string(job.Kind)

	var sink *cacheSink
	if p.cache != nil && job.Variant != "" {
		fill, err := p.cache.Begin(job.MediaID, job.Variant)
		switch {
		case err == nil:
			sink = newCacheSink(fill)
		case errors.Is(err, cache.ErrFillInProgress):
			log.Debug("Fill for media %d %s already running, streaming without cache", job.MediaID, job.Variant)
		default:
			log.Warn("Cannot cache media %d %s: %v", job.MediaID, job.Variant, err)
		}
	}

	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(procCtx, p.ffmpeg, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid: the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = p.waitDelay

	stderr := newTailBuffer(stderrTail)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sink.abort("process_failed")
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		sink.abort("process_failed")
		metrics.TranscoderJobsTotal.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	id := p.registry.add(job, cmd)
	metrics.TranscoderProcessesRunning.WithLabelValues(kind).Inc()
	defer func() {
		p.registry.remove(id)
		metrics.TranscoderProcessesRunning.WithLabelValues(kind).Dec()
		metrics.TranscoderJobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	log.Debug("Started %s pid %d for media %d %s", kind, cmd.Process.Pid, job.MediaID, job.Variant)

	sent, clientErr, readErr := p.pump(stdout, w, sink)
	if clientErr != nil {
		cancel()
	}
	waitErr := cmd.Wait()

	metrics.TranscoderBytesStreamed.WithLabelValues(kind).Add(float64(sent))

	switch {
	case clientErr != nil || ctx.Err() != nil:
		sink.abort("canceled")
		metrics.TranscoderJobsTotal.WithLabelValues(kind, "canceled").Inc()
		cause := clientErr
		if cause == nil {
			cause = ctx.Err()
		}
		log.Debug("Media %d %s canceled after %d bytes: %v", job.MediaID, job.Variant, sent, cause)
		return fmt.Errorf("stream canceled: %w", cause)

	case waitErr != nil || readErr != nil:
		sink.abort("process_failed")
		metrics.TranscoderJobsTotal.WithLabelValues(kind, "failed").Inc()
		cause := waitErr
		if cause == nil {
			cause = readErr
		}
		log.Error("%s failed for media %d %s: %v: %s", kind, job.MediaID, job.Variant, cause, stderr.String())
		return fmt.Errorf("%w: %v: %s", ErrProcessFailed, cause, stderr.String())
	}

	metrics.TranscoderJobsTotal.WithLabelValues(kind, "success").Inc()
	if err := sink.commit(); err != nil {
		log.Warn("Media %d %s streamed but not cached: %v", job.MediaID, job.Variant, err)
	}
	log.Debug("Finished %s for media %d %s: %d bytes in %v", kind, job.MediaID, job.Variant, sent, time.Since(start))
	return nil
}

const readBufferSize = 32 * 1024

// pump copies stdout to the client and the cache sink until EOF or until
// the client write fails. The client is written synchronously, so a slow
// network slows the reads; the sink applies its own bounded backpressure.
func (p *Pipeline) pump(stdout io.Reader, w io.Writer, sink *cacheSink) (sent int64, clientErr, readErr error) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			sink.send(buf[:n])
			written, werr := w.Write(buf[:n])
			sent += int64(written)
			if werr != nil {
				return sent, werr, nil
			}
		}
		if err == io.EOF {
			return sent, nil, nil
		}
		if err != nil {
			return sent, nil, err
		}
	}
}

// Cleanup kills every running process. Called on shutdown.
func (p *Pipeline) Cleanup() {
	p.registry.killAll()
}

// Active lists the running processes.
func (p *Pipeline) Active() []ProcessStats {
	return p.registry.stats()
}
