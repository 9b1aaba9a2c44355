package transcoder

import (
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo describes one running ffmpeg process.
type ProcessInfo struct {
	MediaID int64     `json:"mediaId"`
	Variant string    `json:"variant"`
	Kind    Kind      `json:"kind"`
	PID     int       `json:"pid"`
	Started time.Time `json:"started"`
}

// ProcessStats is a ProcessInfo with resource usage. Usage fields are zero
// when the process could not be inspected.
type ProcessStats struct {
	ProcessInfo
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	RSS        string  `json:"rss"`
	Uptime     string  `json:"uptime"`
}

type registry struct {
	mu        sync.Mutex
	next      uint64
	processes map[uint64]*entry
}

type entry struct {
	info ProcessInfo
	cmd  *exec.Cmd
}

func newRegistry() *registry {
	return &registry{processes: make(map[uint64]*entry)}
}

func (r *registry) add(job Job, cmd *exec.Cmd) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.processes[r.next] = &entry{
		info: ProcessInfo{
			MediaID: job.MediaID,
			Variant: job.Variant,
			Kind:    job.Kind,
			PID:     cmd.Process.Pid,
			Started: time.Now(),
		},
		cmd: cmd,
	}
	return r.next
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	delete(r.processes, id)
	r.mu.Unlock()
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processes)
}

func (r *registry) killAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.processes {
		log.Info("Killing %s process %d for media %d", e.info.Kind, e.info.PID, e.info.MediaID)
		if err := syscall.Kill(-e.info.PID, syscall.SIGKILL); err != nil {
			if err := e.cmd.Process.Kill(); err != nil {
				log.Warn("Failed to kill process %d: %v", e.info.PID, err)
			}
		}
	}
}

func (r *registry) snapshot() []ProcessInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProcessInfo, 0, len(r.processes))
	for _, e := range r.processes {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

func (r *registry) stats() []ProcessStats {
	infos := r.snapshot()
	out := make([]ProcessStats, 0, len(infos))
	for _, info := range infos {
		s := ProcessStats{
			ProcessInfo: info,
			Uptime:      time.Since(info.Started).Round(time.Second).String(),
		}
		if proc, err := process.NewProcess(int32(info.PID)); err == nil {
			if cpu, err := proc.CPUPercent(); err == nil {
				s.CPUPercent = cpu
			}
			if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
				s.RSSBytes = mem.RSS
				s.RSS = humanize.IBytes(mem.RSS)
			}
		}
		out = append(out, s)
	}
	return out
}
