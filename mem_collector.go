package sysx

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MemCollector exports ReadMemStats as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(sysx.NewMemCollector())
type MemCollector struct {
	allocs     *prometheus.Desc
	failures   *prometheus.Desc
	frees      *prometheus.Desc
	liveBlocks *prometheus.Desc
	liveBytes  *prometheus.Desc
}

// NewMemCollector returns a collector reading the process-wide MemStats.
func NewMemCollector() *MemCollector {
	return &MemCollector{
		allocs: prometheus.NewDesc("sysx_mem_allocs_total",
			"Successful allocations through the active memory vtable.", nil, nil),
		failures: prometheus.NewDesc("sysx_mem_alloc_failures_total",
			"Allocations refused by the active memory vtable.", nil, nil),
		frees: prometheus.NewDesc("sysx_mem_frees_total",
			"Blocks returned through the active memory vtable.", nil, nil),
		liveBlocks: prometheus.NewDesc("sysx_mem_heap_live_blocks",
			"Blocks currently held by the default heap.", nil, nil),
		liveBytes: prometheus.NewDesc("sysx_mem_heap_live_bytes",
			"Bytes currently held by the default heap.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *MemCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocs
	ch <- c.failures
	ch <- c.frees
	ch <- c.liveBlocks
	ch <- c.liveBytes
}

// Collect implements prometheus.Collector.
func (c *MemCollector) Collect(ch chan<- prometheus.Metric) {
	s := ReadMemStats()
	ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(s.Allocs))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(s.Frees))
	ch <- prometheus.MustNewConstMetric(c.liveBlocks, prometheus.GaugeValue, float64(s.HeapLiveBlocks))
	ch <- prometheus.MustNewConstMetric(c.liveBytes, prometheus.GaugeValue, float64(s.HeapLiveBytes))
}
