package filesystem

// Event is one step in the life of a retried operation.
type Event int

const (
	// EventStale means an attempt failed with ESTALE.
	EventStale Event = iota
	// EventRetry means another attempt is about to run.
	EventRetry
	// EventRecovered means an attempt succeeded after at least one retry.
	EventRecovered
	// EventExhausted means the operation gave up on a stale handle.
	EventExhausted
)

// Observer receives retry events. The metrics package provides the
// Prometheus implementation; filesystem cannot import it directly.
type Observer interface {
	// op is "stat" or "open"; volume comes from the VolumeResolver.
	ObserveEvent(op, volume string, e Event)
	ObserveDuration(op, volume string, seconds float64)
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string, string, Event)     {}
func (nopObserver) ObserveDuration(string, string, float64) {}

var defaultObserver Observer

// SetObserver installs the package-level observer. Nil disables reporting.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	if defaultObserver == nil {
		return nopObserver{}
	}
	return defaultObserver
}
