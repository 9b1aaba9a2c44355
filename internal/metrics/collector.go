package metrics

import (
	"time"

	"media-library/internal/logging"
)

// CacheStatsProvider reports the size of the transcode cache.
type CacheStatsProvider interface {
	Stats() (files int, bytes int64, err error)
}

// Collector periodically walks the cache and updates the size gauges.
// Walking a large cache is too expensive to do on every scrape.
type Collector struct {
	provider CacheStatsProvider
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider CacheStatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	files, bytes, err := c.provider.Stats()
	if err != nil {
		logging.Warn("Failed to collect cache stats: %v", err)
		return
	}

	CacheFilesTotal.Set(float64(files))
	CacheSizeBytes.Set(float64(bytes))

	logging.Debug("Cache metrics updated: files=%d bytes=%d", files, bytes)
}
