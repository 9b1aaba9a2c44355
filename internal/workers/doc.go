/*
Package workers sizes concurrency limits from the CPUs actually available
to the process.

runtime.NumCPU reports host CPUs, which overstates capacity inside a CPU
limited container. GOMAXPROCS follows the cgroup limit (Go 1.19+), so all
helpers here scale from it:

	n := workers.ForTranscode(8) // one job per 4 CPUs, at most 8

[ParseLimit] handles the TRANSCODE_MAX_CONCURRENT setting, where "auto"
selects [ForTranscode] and a positive integer is taken literally:

	n, ok := workers.ParseLimit(os.Getenv("TRANSCODE_MAX_CONCURRENT"), 16)
*/
package workers
