// Package metrics exports bridge scenario progress as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "bridge_tester"
	pushJob   = "bridge_tester"
)

// Recorder implements bridge.Observer on a private registry.
type Recorder struct {
	registry         *prometheus.Registry
	runs             *prometheus.CounterVec
	finalizeAttempts *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	logger           *slog.Logger
}

var _ bridge.Observer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Bridge scenario runs by scenario and outcome.",
		}, []string{"scenario", "outcome"}),
		finalizeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_attempts_total",
			Help:      "Withdrawal finalization attempts by outcome.",
		}, []string{"outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of scenario steps.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"step"}),
		logger: logger.Named("metrics"),
	}

	r.registry.MustRegister(r.runs, r.finalizeAttempts, r.stepDuration)
	return r
}

// Registry exposes the collectors, e.g. for tests or an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) StepCompleted(step string, took float64) {
	r.stepDuration.WithLabelValues(step).Observe(took)
}

func (r *Recorder) FinalizeAttempted(outcome bridge.AttemptOutcome) {
	r.finalizeAttempts.WithLabelValues(string(outcome)).Inc()
}

func (r *Recorder) RunFinished(scenario bridge.Scenario, outcome string) {
	r.runs.WithLabelValues(string(scenario), outcome).Inc()
}

// Push sends the current values to a Pushgateway, grouped by run ID. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, runID string) error {
	if url == "" {
		return nil
	}

	pusher := push.New(url, pushJob).Gatherer(r.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}

	r.logger.With("url", url).With("run_id", runID).Debug("metrics pushed")
	return nil
}
