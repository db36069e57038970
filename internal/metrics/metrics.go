// Package metrics exposes Prometheus instrumentation for the ledger server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fairshare"

// Metrics holds the collectors registered for one server.
type Metrics struct {
	rpcs        *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	balances    prometheus.Histogram
	events      *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New registers the collectors with a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the collectors with reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC requests by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		balances: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_computation_seconds",
			Help:      "Time spent netting a group's history into balances.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Notifications published by kind.",
		}, []string{"kind"}),
		gatherer: g,
	}
	reg.MustRegister(m.rpcs, m.rpcDuration, m.balances, m.events)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Interceptor counts every unary call by procedure and Connect code.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			m.rpcs.WithLabelValues(procedure, code(err)).Inc()
			return resp, err
		}
	}
}

func code(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}

// ObserveBalances records the duration of one balance computation.
func (m *Metrics) ObserveBalances(d time.Duration) {
	m.balances.Observe(d.Seconds())
}

// Notifier wraps next and counts each event it is handed.
func (m *Metrics) Notifier(next notify.Notifier) notify.Notifier {
	return notify.NotifierFunc(func(ctx context.Context, event notify.Event) error {
		m.events.WithLabelValues(string(event.Kind)).Inc()
		return next.Notify(ctx, event)
	})
}
