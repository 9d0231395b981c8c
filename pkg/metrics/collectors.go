package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SolveFootprint замеряет память и сборку мусора за фазу решения.
// Begin и End обрамляют решатель, Collect отдаёт последний замер.
type SolveFootprint struct {
	mu     sync.Mutex
	before runtime.MemStats
	last   footprint
	peak   uint64

	heapInuse *prometheus.Desc
	heapPeak  *prometheus.Desc
	allocated *prometheus.Desc
	gcCycles  *prometheus.Desc
	gcPause   *prometheus.Desc
}

type footprint struct {
	measured  bool
	heapInuse uint64
	allocated uint64
	gcCycles  uint32
	gcPause   time.Duration
}

// NewSolveFootprint создаёт коллектор замеров фазы решения
func NewSolveFootprint(namespace, subsystem string) *SolveFootprint {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}
	return &SolveFootprint{
		heapInuse: desc("solve_heap_inuse_bytes", "Heap in use when the last solve finished"),
		heapPeak:  desc("solve_heap_inuse_max_bytes", "Largest heap in use seen around any solve"),
		allocated: desc("solve_allocated_bytes", "Bytes allocated during the last solve"),
		gcCycles:  desc("solve_gc_cycles", "GC cycles completed during the last solve"),
		gcPause:   desc("solve_gc_pause_seconds", "Total GC pause during the last solve"),
	}
}

// Begin запоминает состояние памяти перед решением
func (f *SolveFootprint) Begin() {
	f.mu.Lock()
	defer f.mu.Unlock()
	runtime.ReadMemStats(&f.before)
	f.peak = max(f.peak, f.before.HeapInuse)
}

// End фиксирует разницу с Begin
func (f *SolveFootprint) End() {
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = footprint{
		measured:  true,
		heapInuse: after.HeapInuse,
		allocated: after.TotalAlloc - f.before.TotalAlloc,
		gcCycles:  after.NumGC - f.before.NumGC,
		gcPause:   time.Duration(after.PauseTotalNs - f.before.PauseTotalNs),
	}
	f.peak = max(f.peak, after.HeapInuse)
}

// Describe implements prometheus.Collector
func (f *SolveFootprint) Describe(ch chan<- *prometheus.Desc) {
	ch <- f.heapInuse
	ch <- f.heapPeak
	ch <- f.allocated
	ch <- f.gcCycles
	ch <- f.gcPause
}

// Collect implements prometheus.Collector. До первого замера ничего не отдаёт.
func (f *SolveFootprint) Collect(ch chan<- prometheus.Metric) {
	f.mu.Lock()
	last, peak := f.last, f.peak
	f.mu.Unlock()

	if !last.measured {
		return
	}
	ch <- prometheus.MustNewConstMetric(f.heapInuse, prometheus.GaugeValue, float64(last.heapInuse))
	ch <- prometheus.MustNewConstMetric(f.heapPeak, prometheus.GaugeValue, float64(peak))
	ch <- prometheus.MustNewConstMetric(f.allocated, prometheus.GaugeValue, float64(last.allocated))
	ch <- prometheus.MustNewConstMetric(f.gcCycles, prometheus.GaugeValue, float64(last.gcCycles))
	ch <- prometheus.MustNewConstMetric(f.gcPause, prometheus.GaugeValue, last.gcPause.Seconds())
}

// Timer для измерения времени выполнения
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer создаёт новый таймер.
// Для фаз прогона: metrics.NewTimer(m.PhaseDuration, metrics.PhaseSolve).
func NewTimer(histogram *prometheus.HistogramVec, labels ...string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram.WithLabelValues(labels...),
	}
}

// ObserveDuration записывает длительность
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	t.observer.Observe(duration.Seconds())
	return duration
}
