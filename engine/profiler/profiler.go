package profiler

import (
	"log"
	"runtime"
	"time"
)

// Profiler tracks frame pacing and memory statistics for the effect loop.
// Outputs stats to the log once per reporting interval.
type Profiler struct {
	frameCount     int
	intervalStart  time.Time
	lastTick       time.Time
	worstFrame     time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with a 1 second reporting interval.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	now := time.Now()
	return &Profiler{
		intervalStart:  now,
		lastTick:       now,
		updateInterval: time.Second,
	}
}

// Tick should be called once per rendered frame. Logs frame pacing and memory
// statistics when the reporting interval has elapsed: FPS, average and worst
// frame time, heap usage, allocation rate, and GC pauses. Worst frame time is
// the signal that matters for effects — a stage that stalls dispatch shows up
// here long before average FPS moves.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	now := time.Now()
	if frame := now.Sub(p.lastTick); frame > p.worstFrame {
		p.worstFrame = frame
	}
	p.lastTick = now
	p.frameCount++

	elapsed := now.Sub(p.intervalStart)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	avgMs := elapsed.Seconds() * 1000 / float64(p.frameCount)

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap; TotalAlloc is cumulative and tracks churn; Sys is the
	// process footprint from the OS's point of view.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	if gcCount > p.lastGCCount {
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[Profiler] FPS: %.2f | Frame: %.2f ms avg, %.2f ms worst | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max pause: %d µs) | Sys: %.2f MB",
		fps, avgMs, float64(p.worstFrame.Microseconds())/1000, allocMB, allocRateMB, gcCount, maxPauseUs, sysMB)

	p.frameCount = 0
	p.worstFrame = 0
	p.intervalStart = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
