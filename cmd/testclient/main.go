// Command testclient checks the session service's gRPC health status.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	grpcapi "speech-session-service/internal/api/grpc"
	"speech-session-service/internal/observability/logging"
)

func main() {
	addr := flag.String("server", "localhost:50051", "gRPC server address")
	service := flag.String("service", grpcapi.ServiceName, "Service name to check (empty for overall status)")
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", Output: os.Stderr})

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: *service})
	if err != nil {
		log.Fatal().Err(err).Str("server", *addr).Msg("Health check failed")
	}

	log.Info().Str("service", *service).Str("status", resp.GetStatus().String()).Msg("Health check")
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}
