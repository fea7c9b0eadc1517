package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sglre6355/station-herald/internal/usecase"
)

// Broadcast metrics
var (
	// BroadcastTicksTotal counts completed ticks by whether the status endpoint answered
	BroadcastTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_ticks_total",
			Help: "Completed broadcast ticks by status availability",
		},
		[]string{"status"},
	)

	// BroadcastDeliveriesTotal counts message edits by result
	BroadcastDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Status message edits by result (delivered/failed)",
		},
		[]string{"result"},
	)

	// BroadcastSubscriptionsPruned counts subscriptions dropped as unreachable
	BroadcastSubscriptionsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_subscriptions_pruned_total",
			Help: "Subscriptions removed because their message became unreachable",
		},
	)

	// BroadcastSubscriptionsCurrent tracks how many messages are kept in sync
	BroadcastSubscriptionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_subscriptions_current",
			Help: "Subscribed status messages after the last tick",
		},
	)
)

// ObserveTick records one tick report. subscriptions is the set size after pruning.
func ObserveTick(report usecase.TickReport, subscriptions int) {
	status := "unavailable"
	if report.Available {
		status = "available"
	}
	BroadcastTicksTotal.WithLabelValues(status).Inc()
	BroadcastDeliveriesTotal.WithLabelValues("delivered").Add(float64(report.Delivered))
	BroadcastDeliveriesTotal.WithLabelValues("failed").Add(float64(report.Failed))
	BroadcastSubscriptionsPruned.Add(float64(report.Pruned))
	BroadcastSubscriptionsCurrent.Set(float64(subscriptions))
}

// Server exposes /metrics over HTTP.
type Server struct {
	server *http.Server
}

// NewServer builds a metrics server listening on address.
func NewServer(address string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{server: &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// ListenAndServe listens on the configured address and serves in the background.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	return nil
}

// Handler returns the HTTP handler serving /metrics.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Close stops the metrics server.
func (s *Server) Close() error {
	return s.server.Close()
}
