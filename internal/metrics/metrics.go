// Package metrics counts executed actions on a private Prometheus registry.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/inovacc/recstore/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recstore"

// OutcomeOK labels successful executions.
const OutcomeOK = "ok"

// Metrics implements action.Recorder.
type Metrics struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	registry *prometheus.Registry
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total number of executed actions",
			},
			[]string{"action", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action execution in seconds, including commit",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(m.actions, m.duration)

	return m
}

// Observe records one execution.
func (m *Metrics) Observe(action string, elapsed time.Duration, err error) {
	m.actions.WithLabelValues(action, Outcome(err)).Inc()
	m.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}

// Outcome names the result of an execution: "ok", the engine error name, or
// "error" for anything else.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}

	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return string(engErr.Name)
	}

	return "error"
}
