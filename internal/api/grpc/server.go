// Package grpcapi exposes gRPC health checking and reflection for the
// session service. Transcription itself is served over WebSocket.
package grpcapi

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"speech-session-service/internal/observability"
)

// ServiceName is the health-check name of the transcription service.
const ServiceName = "speech.session.Transcription"

// Server wraps the gRPC server and its health service.
type Server struct {
	*grpc.Server
	health *health.Server
}

// NewServer creates a gRPC server with health and reflection registered.
// Both the overall and the per-service status start NOT_SERVING.
func NewServer(opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.UnaryInterceptor(observability.UnaryServerInterceptor())}, opts...)
	g := grpc.NewServer(opts...)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{Server: g, health: hs}
	s.SetServing(false)
	return s
}

// SetServing flips the health status reported for the service.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Shutdown marks the service NOT_SERVING and drains in-flight calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}
