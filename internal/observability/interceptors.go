package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor logs each unary call. Health probes that succeed
// log at debug; failures log at warn.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := zerolog.DebugLevel
		if code != codes.OK {
			level = zerolog.WarnLevel
		}
		ev := log.WithLevel(level).
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start))
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			ev = ev.Str("peer", p.Addr.String())
		}
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("gRPC call")
		return resp, err
	}
}
