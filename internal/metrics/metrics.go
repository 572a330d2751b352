// Package metrics holds the Prometheus collectors of the credit engine and
// the store simulator. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "creditkeeper"

type Metrics struct {
	events        *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	validations   *prometheus.CounterVec
	balance       prometheus.Gauge
	gatewayCalls  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. It panics on a
// registration conflict, like promauto.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "events_total",
			Help:      "Purchase events handled, by delivery path and outcome.",
		}, []string{"source", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "event_duration_seconds",
			Help:      "Time spent reconciling one purchase event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receipt",
			Name:      "validations_total",
			Help:      "Receipt validations, by result.",
		}, []string{"result"}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "balance_credits",
			Help:      "Credit balance after the last ledger change.",
		}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Store gateway calls, by method and result.",
		}, []string{"method", "result"}),
	}
	reg.MustRegister(m.events, m.eventDuration, m.validations, m.balance, m.gatewayCalls)
	return m
}

func (m *Metrics) ObserveEvent(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(source, outcome).Inc()
	m.eventDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) SetBalance(b int64) {
	if m == nil {
		return
	}
	m.balance.Set(float64(b))
}

func (m *Metrics) ObserveGatewayCall(method, result string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(method, result).Inc()
}

// Serve exposes reg on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "Starting metrics endpoint", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
