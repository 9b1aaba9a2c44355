// Package memory configures the Go runtime's soft memory limit for
// containers and reports heap usage.
//
// GOMAXPROCS follows cgroup CPU limits on its own; GOMEMLIMIT does not.
// [ConfigureFromEnv] derives it from MEMORY_LIMIT, normally injected with
// the Kubernetes Downward API:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.4"
//
// The server itself holds little memory; transcodes run as ffmpeg child
// processes that count against the same container limit, so the default
// ratio leaves half of it outside the Go heap.
package memory
