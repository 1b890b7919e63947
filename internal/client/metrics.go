package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
)

// Transport metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "erd",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "erd",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "erd",
			Subsystem: "client",
			Name:      "request_errors_total",
			Help:      "Failed backend requests by error kind",
		},
		[]string{"route", "kind"},
	)
)

func observeMetrics(call Call) {
	status := "none"
	if call.Status > 0 {
		status = strconv.Itoa(call.Status)
	}

	RequestsTotal.WithLabelValues(call.Method, call.Route, status).Inc()
	RequestDuration.WithLabelValues(call.Method, call.Route).Observe(call.Duration.Seconds())

	if call.Err != nil {
		RequestErrors.WithLabelValues(call.Route, KindOf(call.Err).String()).Inc()
	}
}

// MetricsServer exposes the default prometheus registry on /metrics.
type MetricsServer struct {
	srv *http.Server
	ln  net.Listener
}

// ServeMetrics starts listening on addr and serves metrics in the background.
func ServeMetrics(addr string) (*MetricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &MetricsServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	logger.Info("metrics listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the bound listen address.
func (s *MetricsServer) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
