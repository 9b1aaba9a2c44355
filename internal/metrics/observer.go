package metrics

import "media-library/internal/filesystem"

type filesystemObserver struct{}

// NewFilesystemObserver returns a filesystem.Observer backed by the
// Filesystem* metrics.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveEvent(op, volume string, e filesystem.Event) {
	switch e {
	case filesystem.EventStale:
		FilesystemStaleErrors.WithLabelValues(op, volume).Inc()
	case filesystem.EventRetry:
		FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
	case filesystem.EventRecovered:
		FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
	case filesystem.EventExhausted:
		FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	}
}

func (filesystemObserver) ObserveDuration(op, volume string, seconds float64) {
	FilesystemRetryDuration.WithLabelValues(op, volume).Observe(seconds)
}
