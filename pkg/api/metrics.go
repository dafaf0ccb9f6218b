package api

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// confloomCollector implements prometheus.Collector, snapshotting the
// workspace on each scrape.
type confloomCollector struct {
	srv *Server

	configsLoaded    *prometheus.Desc
	parseDiagnostics *prometheus.Desc
	operationsTotal  *prometheus.Desc
	uptimeSeconds    *prometheus.Desc
}

func newCollector(srv *Server) *confloomCollector {
	return &confloomCollector{
		srv: srv,

		configsLoaded: prometheus.NewDesc(
			"confloom_configs_loaded",
			"Number of configurations currently stored.",
			nil, nil,
		),
		parseDiagnostics: prometheus.NewDesc(
			"confloom_parse_diagnostics",
			"Total parse diagnostics across stored configurations.",
			nil, nil,
		),
		operationsTotal: prometheus.NewDesc(
			"confloom_operations_total",
			"Total workspace operations by kind.",
			[]string{"op"}, nil,
		),
		uptimeSeconds: prometheus.NewDesc(
			"confloom_uptime_seconds",
			"Seconds since the API server started.",
			nil, nil,
		),
	}
}

func (c *confloomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.configsLoaded
	ch <- c.parseDiagnostics
	ch <- c.operationsTotal
	ch <- c.uptimeSeconds
}

func (c *confloomCollector) Collect(ch chan<- prometheus.Metric) {
	if c.srv.ws == nil {
		return
	}
	stats := c.srv.ws.Stats()

	ch <- prometheus.MustNewConstMetric(c.configsLoaded, prometheus.GaugeValue,
		float64(stats.Configs))
	ch <- prometheus.MustNewConstMetric(c.parseDiagnostics, prometheus.GaugeValue,
		float64(stats.Diagnostics))

	ops := make([]string, 0, len(stats.Operations))
	for op := range stats.Operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		ch <- prometheus.MustNewConstMetric(c.operationsTotal, prometheus.CounterValue,
			float64(stats.Operations[op]), op)
	}

	ch <- prometheus.MustNewConstMetric(c.uptimeSeconds, prometheus.GaugeValue,
		time.Since(c.srv.startTime).Seconds())
}
