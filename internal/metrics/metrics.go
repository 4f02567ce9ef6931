// internal/metrics/metrics.go
//
// Prometheus collectors for game activity.
// Responsibilities:
//   - Count games started (by mode) and finished (by mode and state).
//   - Observe turns used by finished games.
//   - Count rejected events (by error code) and judged guesses.
//   - Expose the registry over HTTP for /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hitblow"

// Metrics owns its registry so tests and multiple servers do not collide.
type Metrics struct {
	reg *prometheus.Registry

	gamesStarted  *prometheus.CounterVec
	gamesFinished *prometheus.CounterVec
	turnsUsed     prometheus.Histogram
	rejected      *prometheus.CounterVec
	judged        prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		// Labels: mode (free, daily)
		gamesStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "started_total",
			Help:      "Games started",
		}, []string{"mode"}),
		// Labels: mode, state (won, lost, aborted)
		gamesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "finished_total",
			Help:      "Games that reached a terminal state",
		}, []string{"mode", "state"}),
		turnsUsed: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "turns_used",
			Help:      "Confirmed turns in finished games",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		}),
		// Labels: code (invalid_position, game_over, ...)
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "rejected_total",
			Help:      "Player events rejected by the session",
		}, []string{"code"}),
		judged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "judge",
			Name:      "guesses_total",
			Help:      "Guesses evaluated",
		}),
	}
}

func (m *Metrics) GameStarted(mode string) { m.gamesStarted.WithLabelValues(mode).Inc() }

// GameFinished records the terminal state and turn count.
func (m *Metrics) GameFinished(mode, state string, turns int) {
	m.gamesFinished.WithLabelValues(mode, state).Inc()
	m.turnsUsed.Observe(float64(turns))
}

func (m *Metrics) EventRejected(code string) { m.rejected.WithLabelValues(code).Inc() }

func (m *Metrics) GuessJudged() { m.judged.Inc() }

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
