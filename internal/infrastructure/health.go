package infrastructure

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StatusFeedService is the health service name reflecting whether the status endpoint answered.
const StatusFeedService = "status"

// HealthServer exposes the gRPC health checking protocol for the bot process.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

// NewHealthServer registers the health service on a fresh gRPC server.
// The process reports SERVING; the status feed starts as NOT_SERVING until the first successful fetch.
func NewHealthServer() *HealthServer {
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(StatusFeedService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{server: server, health: healthServer}
}

// SetStatusFeedAvailable records whether the last fetch produced a snapshot.
func (h *HealthServer) SetStatusFeedAvailable(available bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(StatusFeedService, status)
}

// Serve accepts health checks on listener until Stop is called.
func (h *HealthServer) Serve(listener net.Listener) error {
	if err := h.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("health server stopped: %w", err)
	}
	return nil
}

// ListenAndServe listens on address and serves in the background.
func (h *HealthServer) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	go func() {
		if err := h.Serve(listener); err != nil {
			slog.Error("health server failed", slog.Any("error", err))
		}
	}()

	return nil
}

// Stop marks every service NOT_SERVING and stops the gRPC server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
