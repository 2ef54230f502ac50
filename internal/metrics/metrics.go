// Package metrics exposes turn and generator statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	turns        *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	turnDuration prometheus.Histogram
	states       *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// New registers the collectors on a private registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steve_turns_total",
				Help: "Total number of dialogue turns by outcome",
			},
			[]string{"outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steve_generator_attempts_total",
				Help: "Total number of generator calls by result",
			},
			[]string{"result"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "steve_turn_duration_seconds",
				Help:    "Duration of dialogue turns, retries included",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
			},
		),
		states: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steve_narrative_state_total",
				Help: "Narrative state reached after each turn",
			},
			[]string{"state"},
		),
		gatherer: gatherer,
	}

	for _, c := range []prometheus.Collector{m.turns, m.attempts, m.turnDuration, m.states} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record every attempt and turn.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGenerate: func(ctx context.Context, e *domain.GenerateEvent) {
			m.attempts.WithLabelValues(attemptResult(e.Err)).Inc()
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(string(e.Outcome)).Inc()
			m.turnDuration.Observe(e.Duration.Seconds())
			m.states.WithLabelValues(string(e.To)).Inc()
		},
	}
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func attemptResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		return "unavailable"
	default:
		return "fatal"
	}
}
