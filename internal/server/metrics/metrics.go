// Package metrics exposes Prometheus instrumentation for the gRPC endpoint
// and token issuance.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

type Metrics struct {
	Registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	TokensIssued   *prometheus.CounterVec
}

// New registers the authkeeper collectors plus the Go runtime and process
// collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: registry,
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkeeper_grpc_requests_total",
				Help: "Total gRPC requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authkeeper_grpc_request_duration_seconds",
				Help:    "gRPC request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		TokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkeeper_tokens_issued_total",
				Help: "Signed tokens by token_use.",
			},
			[]string{"use"},
		),
	}

	registry.MustRegister(m.Requests, m.RequestLatency, m.TokensIssued)
	return m
}

// TokenIssued counts one signed token of the given use.
func (m *Metrics) TokenIssued(use string) {
	m.TokensIssued.WithLabelValues(use).Inc()
}

// UnaryServerInterceptor records count and latency of every unary call.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		m.RequestLatency.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		m.Requests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "Starting metrics server", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
