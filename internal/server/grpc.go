package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/hsabouri/the-social-network/internal/metrics"
	"github.com/hsabouri/the-social-network/internal/rpc"
)

// NewGRPC builds the gRPC server around a Service: wire codec forced on,
// metrics and logging interceptors installed, service registered.
func NewGRPC(svc *Service, log zerolog.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(rpc.Codec{}),
		grpc.ChainUnaryInterceptor(unaryObserver(log)),
		grpc.ChainStreamInterceptor(streamObserver(log)),
	)
	rpc.RegisterSocialNetworkServer(srv, svc)
	return srv
}

func unaryObserver(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		metrics.RecordRPC(info.FullMethod, code.String(), elapsed)
		log.Debug().
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("elapsed", elapsed).
			Msg("rpc handled")
		return resp, err
	}
}

func streamObserver(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		elapsed := time.Since(start)

		code := status.Code(err)
		metrics.RecordRPC(info.FullMethod, code.String(), elapsed)
		log.Debug().
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("elapsed", elapsed).
			Msg("stream closed")
		return err
	}
}
