/*
Package filesystem wraps os.Stat and os.Open with retry logic for NFS stale
file handle errors.

Media libraries are usually mounted from a NAS. When the server side renames
or replaces a file, the client can observe ESTALE for a short window. The
delivery layer stats and opens source files through this package, and the
cache does the same for its artifacts, so a transient stale handle does not
turn into a 404.

Only ESTALE triggers retries. Backoff is exponential from InitialBackoff,
capped at MaxBackoff, and ends early when the context is done:

	info, err := filesystem.StatWithRetry(r.Context(), path, filesystem.DefaultRetryConfig())

Retries are reported as Events to an Observer set with SetObserver; the
metrics package provides the Prometheus implementation. Volume labels come
from a VolumeResolver mapping mount roots ("media", "cache", "database") to
names.
*/
package filesystem
