package transcoder

import (
	"sync"

	"media-library/internal/cache"
	"media-library/internal/metrics"
)

// sinkDepth is how many chunks the cache writer may lag behind the client
// before it slows the read loop down.
const sinkDepth = 16

// cacheSink writes process output to a cache fill on its own goroutine.
// Each chunk is copied, so the read buffer is never shared. A failed write
// detaches the sink: later chunks are dropped and the fill is discarded,
// while the client stream carries on.
type cacheSink struct {
	fill *cache.Fill
	ch   chan []byte
	done chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func newCacheSink(fill *cache.Fill) *cacheSink {
	s := &cacheSink{
		fill: fill,
		ch:   make(chan []byte, sinkDepth),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *cacheSink) run() {
	defer close(s.done)
	for chunk := range s.ch {
		if s.failed() {
			continue
		}
		if _, err := s.fill.Write(chunk); err != nil {
			log.Warn("Cache write failed for %s, continuing without cache: %v", s.fill.FinalPath(), err)
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}
}

func (s *cacheSink) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

func (s *cacheSink) send(p []byte) {
	if s == nil || s.failed() {
		return
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	s.ch <- chunk
}

func (s *cacheSink) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
		<-s.done
	})
}

// commit waits for pending writes and promotes the fill.
func (s *cacheSink) commit() error {
	if s == nil {
		return nil
	}
	s.close()
	if s.err != nil {
		s.fill.Abort()
		metrics.CacheDiscardsTotal.WithLabelValues("write_error").Inc()
		return s.err
	}
	return s.fill.Commit()
}

// abort waits for pending writes and discards the fill.
func (s *cacheSink) abort(reason string) {
	if s == nil {
		return
	}
	s.close()
	s.fill.Abort()
	metrics.CacheDiscardsTotal.WithLabelValues(reason).Inc()
}
