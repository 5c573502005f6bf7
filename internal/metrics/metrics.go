// Package metrics exposes Prometheus counters for account operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tentera"

// Collector owns a private registry so tests and multiple apps in one
// process do not collide on the default registerer.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	codes      *prometheus.CounterVec
}

// NewCollector registers the account counters plus the Go and process
// collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_operations_total",
			Help:      "Account operations by outcome.",
		}, []string{"operation", "outcome"}),
		codes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_codes_issued_total",
			Help:      "Verification codes delivered, by channel.",
		}, []string{"channel"}),
	}
	reg.MustRegister(
		c.operations,
		c.codes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveOperation counts one operation. outcome is "ok" or a failure kind.
func (c *Collector) ObserveOperation(operation, outcome string) {
	c.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveCodeIssued counts one delivered verification code.
func (c *Collector) ObserveCodeIssued(channel string) {
	c.codes.WithLabelValues(channel).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
