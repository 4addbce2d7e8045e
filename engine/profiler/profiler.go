package profiler

import (
	"runtime"
	"sort"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
)

// Sample is the CPU and GPU time of one frame or one view of a frame.
type Sample struct {
	CPU time.Duration
	GPU time.Duration
}

// ViewStats are the averages of one named view over the measurement window.
type ViewStats struct {
	AvgCPU time.Duration
	AvgGPU time.Duration
}

// Stats are the averages over the measurement window.
type Stats struct {
	Frames      uint64
	AvgFrameCPU time.Duration
	AvgFrameGPU time.Duration
	Views       map[string]ViewStats
}

// ViewNames returns the view names in sorted order.
func (s Stats) ViewNames() []string {
	names := make([]string, 0, len(s.Views))
	for name := range s.Views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiler tracks frame rate and memory statistics for performance monitoring, and
// averages frame and per-view timings over a measurement window.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	frames    uint64
	frameSum  Sample
	viewSums  map[string]Sample
	viewCount map[string]uint64
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		viewSums:       make(map[string]Sample),
		viewCount:      make(map[string]uint64),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// RecordFrame adds one frame to the measurement window.
//
// Parameters:
//   - frame: the whole frame's timings
//   - views: the timings of each view the frame ran
func (p *Profiler) RecordFrame(frame Sample, views map[string]Sample) {
	p.frames++
	p.frameSum.CPU += frame.CPU
	p.frameSum.GPU += frame.GPU
	for name, v := range views {
		sum := p.viewSums[name]
		sum.CPU += v.CPU
		sum.GPU += v.GPU
		p.viewSums[name] = sum
		p.viewCount[name]++
	}
}

// Stats returns the averages recorded since the last Reset.
//
// Returns:
//   - Stats: the window averages; zero durations when no frame was recorded
func (p *Profiler) Stats() Stats {
	s := Stats{Frames: p.frames, Views: make(map[string]ViewStats, len(p.viewSums))}
	if p.frames > 0 {
		s.AvgFrameCPU = p.frameSum.CPU / time.Duration(p.frames)
		s.AvgFrameGPU = p.frameSum.GPU / time.Duration(p.frames)
	}
	for name, sum := range p.viewSums {
		n := time.Duration(p.viewCount[name])
		s.Views[name] = ViewStats{AvgCPU: sum.CPU / n, AvgGPU: sum.GPU / n}
	}
	return s
}

// Reset starts a new measurement window.
func (p *Profiler) Reset() {
	p.frames = 0
	p.frameSum = Sample{}
	clear(p.viewSums)
	clear(p.viewCount)
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, average frame time, heap usage, allocation rate and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	stats := p.Stats()
	common.Logger().Info("[Profiler]",
		"fps", fps,
		"frame_cpu_ms", durationMs(stats.AvgFrameCPU),
		"frame_gpu_ms", durationMs(stats.AvgFrameGPU),
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
