// Package metrics collects analysis and bundling counters on a private
// prometheus registry. All methods are no-ops on a nil *Collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the yamb metrics.
type Collector struct {
	registry *prometheus.Registry

	modulesAnalyzed *prometheus.CounterVec
	analysisErrors  prometheus.Counter
	cacheHits       prometheus.Counter
	sectionDuration *prometheus.HistogramVec
	bundleBytes     *prometheus.GaugeVec
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		modulesAnalyzed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yamb_modules_analyzed_total",
				Help: "Number of analyzed modules by resource type.",
			},
			[]string{"type"},
		),
		analysisErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "yamb_module_analysis_errors_total",
				Help: "Number of module analyses that failed and were degraded.",
			},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "yamb_module_cache_hits_total",
				Help: "Number of module info requests served from the cache.",
			},
		),
		sectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yamb_bundle_section_duration_seconds",
				Help:    "Time taken to render a bundle section.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		bundleBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "yamb_bundle_bytes",
				Help: "Size of the last written bundle.",
			},
			[]string{"bundle"},
		),
	}
	c.registry.MustRegister(
		c.modulesAnalyzed,
		c.analysisErrors,
		c.cacheHits,
		c.sectionDuration,
		c.bundleBytes,
	)
	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) ModuleAnalyzed(resourceType string) {
	if c == nil {
		return
	}
	c.modulesAnalyzed.WithLabelValues(resourceType).Inc()
}

func (c *Collector) AnalysisFailed() {
	if c == nil {
		return
	}
	c.analysisErrors.Inc()
}

func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

func (c *Collector) ObserveSection(mode string, d time.Duration) {
	if c == nil {
		return
	}
	c.sectionDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (c *Collector) BundleWritten(bundle string, size int) {
	if c == nil {
		return
	}
	c.bundleBytes.WithLabelValues(bundle).Set(float64(size))
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
