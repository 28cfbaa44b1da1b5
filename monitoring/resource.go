package monitoring

import (
	"bytes"
	"fmt"
	"runtime/pprof"
	"time"

	"github.com/google/pprof/profile"
	"github.com/shirou/gopsutil/process"
)

// A Resource is the CPU and memory use of a process.
type Resource struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// SampleProcess reads the resource use of a process.
func SampleProcess(pid int32) (Resource, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return Resource{}, fmt.Errorf("process %d: %w", pid, err)
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return Resource{}, fmt.Errorf("cpu of %d: %w", pid, err)
	}

	memory, err := p.MemoryInfo()
	if err != nil {
		return Resource{}, fmt.Errorf("memory of %d: %w", pid, err)
	}

	return Resource{
		PID:        pid,
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	}, nil
}

// A Sampler keeps the peak resource use of a process while it runs.
type Sampler struct {
	pid      int32
	interval time.Duration
	peak     Resource
	done     chan struct{}
	stopped  chan struct{}
}

// StartSampler starts sampling a process in the background.
func StartSampler(pid int32, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	s := &Sampler{
		pid:      pid,
		interval: interval,
		peak:     Resource{PID: pid},
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go s.loop()

	return s
}

func (s *Sampler) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			r, err := SampleProcess(s.pid)
			if err != nil {
				continue
			}

			if r.CPUPercent > s.peak.CPUPercent {
				s.peak.CPUPercent = r.CPUPercent
			}

			if r.MemorySize > s.peak.MemorySize {
				s.peak.MemorySize = r.MemorySize
			}
		}
	}
}

// Stop ends the sampling and returns the peak use.
func (s *Sampler) Stop() Resource {
	close(s.done)
	<-s.stopped

	return s.peak
}

// CollectProfile records the CPU profile of this process for a while.
func CollectProfile(d time.Duration) (*profile.Profile, error) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		return nil, err
	}

	time.Sleep(d)

	pprof.StopCPUProfile()

	return profile.ParseData(buf.Bytes())
}
