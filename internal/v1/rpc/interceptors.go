package rpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/onnwee/lobby/internal/v1/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const correlationIDMetadataKey = "x-correlation-id"

// UnaryCorrelationIDInterceptor reads x-correlation-id off incoming
// metadata, generating one if absent, and attaches it to the request
// context for internal/v1/logging to pick up.
func UnaryCorrelationIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx = withCorrelationID(ctx)
		logging.Info(ctx, "rpc: unary request", zap.String("method", info.FullMethod))
		return handler(ctx, req)
	}
}

// StreamCorrelationIDInterceptor is the streaming analogue of
// UnaryCorrelationIDInterceptor.
func StreamCorrelationIDInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := withCorrelationID(ss.Context())
		logging.Info(ctx, "rpc: stream opened", zap.String("method", info.FullMethod))
		return handler(srv, &correlationServerStream{ServerStream: ss, ctx: ctx})
	}
}

func withCorrelationID(ctx context.Context) context.Context {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(correlationIDMetadataKey); len(vals) > 0 && vals[0] != "" {
			return logging.WithCorrelationID(ctx, vals[0])
		}
	}
	return logging.WithCorrelationID(ctx, uuid.NewString())
}

// correlationServerStream overrides Context() so downstream handlers see
// the correlation-id-bearing context instead of the stream's original one.
type correlationServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *correlationServerStream) Context() context.Context { return s.ctx }
