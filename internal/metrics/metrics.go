// Package metrics exposes the runtime's population counters as
// Prometheus metrics (C7, an addition beyond the distilled spec — see
// SPEC_FULL.md §4.8). None of this is required for correct dispatch;
// it only makes Runtime.Stats observable to a scrape target.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenzoki/actorrt/runtime"
)

// Collector wraps the gauges/counter tracking one Runtime's population.
// Register it with a prometheus.Registerer (or use the default registry
// via MustRegister) and call Refresh after every Step/ProcessAllPending
// call you want reflected in the next scrape.
type Collector struct {
	agentsTotal    prometheus.Gauge
	agentsRunning  prometheus.Gauge
	agentsPaused   prometheus.Gauge
	agentsStopped  prometheus.Gauge
	mailboxPending prometheus.Gauge
	repliesFanned  prometheus.Counter
}

// NewCollector builds a Collector with the given metric name prefix
// (e.g. "actorrt"), unregistered.
func NewCollector(namespace string) *Collector {
	return &Collector{
		agentsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_total",
			Help:      "Number of agents currently registered with the runtime.",
		}),
		agentsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_running",
			Help:      "Number of agents currently in the Running state.",
		}),
		agentsPaused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_paused",
			Help:      "Number of agents currently in the Paused state.",
		}),
		agentsStopped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_stopped",
			Help:      "Number of agents currently in the Stopped state.",
		}),
		mailboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mailbox_pending",
			Help:      "Number of agents that currently need a drain.",
		}),
		repliesFanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_fanned_total",
			Help:      "Total number of reply envelopes fanned out across all Step calls.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.agentsTotal.Desc()
	ch <- c.agentsRunning.Desc()
	ch <- c.agentsPaused.Desc()
	ch <- c.agentsStopped.Desc()
	ch <- c.mailboxPending.Desc()
	ch <- c.repliesFanned.Desc()
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- c.agentsTotal
	ch <- c.agentsRunning
	ch <- c.agentsPaused
	ch <- c.agentsStopped
	ch <- c.mailboxPending
	ch <- c.repliesFanned
}

// Refresh pulls a fresh Stats snapshot from r and updates the gauges.
// Call after every Step (or ProcessAllPending) whose effect should be
// visible to the next scrape.
func (c *Collector) Refresh(r *runtime.Runtime) {
	s := r.Stats()
	c.agentsTotal.Set(float64(s.Total))
	c.agentsRunning.Set(float64(s.Running))
	c.agentsPaused.Set(float64(s.Paused))
	c.agentsStopped.Set(float64(s.Stopped))
	c.mailboxPending.Set(float64(s.Pending))
}

// ObserveStep records one Step's fan-out count against the replies
// counter. Call with the StepResult.Replied value after each Step.
func (c *Collector) ObserveStep(replied int) {
	c.repliesFanned.Add(float64(replied))
}
