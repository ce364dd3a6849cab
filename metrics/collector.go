// Package metrics exposes ioc.Container counters to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector(c))
package metrics

import (
	"github.com/junioryono/ioc"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "ioc"
	subsystem = "container"
)

// StatsSource is implemented by *ioc.Container.
type StatsSource interface {
	Stats() ioc.Stats
}

// Collector reads the counters of one container on every scrape.
type Collector struct {
	source StatsSource

	registrations  *prometheus.Desc
	revision       *prometheus.Desc
	resolutions    *prometheus.Desc
	failures       *prometheus.Desc
	fastPathHits   *prometheus.Desc
	fastPathMisses *prometheus.Desc
	rootScoped     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for source. Each series carries the
// container ID as the container_id label, so several containers can share
// one registry.
func NewCollector(source StatsSource) *Collector {
	labels := prometheus.Labels{"container_id": source.Stats().ID}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, labels)
	}

	return &Collector{
		source:         source,
		registrations:  desc("registrations", "Number of registered factories under closed service keys"),
		revision:       desc("registry_revision", "Registry revision, increased by every registration change"),
		resolutions:    desc("resolutions_total", "Total single-service resolutions"),
		failures:       desc("resolution_failures_total", "Total single-service resolutions that returned an error"),
		fastPathHits:   desc("fast_path_hits_total", "Total lookups answered by the resolution cache"),
		fastPathMisses: desc("fast_path_misses_total", "Total lookups that rebuilt a resolution cache entry"),
		rootScoped:     desc("root_scope_instances", "Scoped instances held by the root scope"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registrations
	ch <- c.revision
	ch <- c.resolutions
	ch <- c.failures
	ch <- c.fastPathHits
	ch <- c.fastPathMisses
	ch <- c.rootScoped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.registrations, prometheus.GaugeValue, float64(s.Registrations))
	ch <- prometheus.MustNewConstMetric(c.revision, prometheus.GaugeValue, float64(s.Revision))
	ch <- prometheus.MustNewConstMetric(c.resolutions, prometheus.CounterValue, float64(s.Resolutions))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.fastPathHits, prometheus.CounterValue, float64(s.FastPathHits))
	ch <- prometheus.MustNewConstMetric(c.fastPathMisses, prometheus.CounterValue, float64(s.FastPathMisses))
	ch <- prometheus.MustNewConstMetric(c.rootScoped, prometheus.GaugeValue, float64(s.RootScoped))
}
