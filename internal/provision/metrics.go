package provision

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type runMetrics struct {
	reg      *prometheus.Registry
	targets  *prometheus.GaugeVec
	services *prometheus.GaugeVec
	port     *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		reg: prometheus.NewRegistry(),
		targets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "llmsvc",
			Subsystem: "provision",
			Name:      "targets",
			Help:      "Targets collected in the last run, by kind",
		}, []string{"kind"}),
		services: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "llmsvc",
			Subsystem: "provision",
			Name:      "services",
			Help:      "Services materialized in the last run, by outcome",
		}, []string{"state"}),
		port: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "llmsvc",
			Subsystem: "provision",
			Name:      "service_port",
			Help:      "Port assigned to each provisioned unit",
		}, []string{"unit", "service_id"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmsvc",
			Subsystem: "provision",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last provisioning run finished",
		}),
	}
	m.reg.MustRegister(m.targets, m.services, m.port, m.lastRun)
	return m
}

func (m *runMetrics) observe(sum Summary, now time.Time) {
	for _, t := range sum.Targets {
		m.targets.WithLabelValues(t.Kind.String()).Inc()
	}
	m.services.WithLabelValues("started").Set(0)
	m.services.WithLabelValues("failed").Set(0)
	for _, r := range sum.Results {
		state := "failed"
		if r.Started {
			state = "started"
		}
		m.services.WithLabelValues(state).Inc()
		m.port.WithLabelValues(r.Unit, r.Target.ServiceID).Set(float64(r.Port))
	}
	m.lastRun.Set(float64(now.Unix()))
}

// WriteMetrics writes run gauges in the node-exporter textfile format.
func WriteMetrics(path string, sum Summary) error {
	m := newRunMetrics()
	m.observe(sum, time.Now())
	return prometheus.WriteToTextfile(path, m.reg)
}
