// Package ratelimit implements gRPC rate limiting using Redis or local
// memory, in the teacher's ulule/limiter-backed style.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/onnwee/lobby/internal/v1/config"
	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimiter holds the rate limiter instances backing the grpc
// interceptors: one keyed by caller IP (protects the unary Ping surface
// from unauthenticated callers), one keyed by user id (protects the
// RoomService stream surface once a caller is identified).
type RateLimiter struct {
	ipLimiter   *limiter.Limiter
	userLimiter *limiter.Limiter
}

// NewRateLimiter creates a RateLimiter backed by redisClient, falling back
// to an in-process memory store if redisClient is nil.
func NewRateLimiter(cfg *config.Config, redisClient *redis.Client) (*RateLimiter, error) {
	ipRate, err := limiter.NewRateFromFormatted(cfg.RateLimitIPFormatted)
	if err != nil {
		return nil, fmt.Errorf("invalid IP rate: %w", err)
	}
	userRate, err := limiter.NewRateFromFormatted(cfg.RateLimitUserFormatted)
	if err != nil {
		return nil, fmt.Errorf("invalid user rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Warn(context.Background(), "rate limiter using memory store (Redis disabled)")
	}

	return &RateLimiter{
		ipLimiter:   limiter.New(store, ipRate),
		userLimiter: limiter.New(store, userRate),
	}, nil
}

// UnaryServerInterceptor enforces the per-IP rate limit on every unary RPC
// (in practice, Ping). Fails open if the limiter store errors.
func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		key := peerKey(ctx)
		lctx, err := rl.ipLimiter.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err), zap.String("method", info.FullMethod))
			return handler(ctx, req)
		}
		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(info.FullMethod).Inc()
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry after %d", lctx.Reset)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor enforces the per-IP rate limit on stream
// establishment (RoomService). The per-user limit is enforced separately
// by CheckUser once the caller's id is known from the first request.
func (rl *RateLimiter) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		key := peerKey(ctx)
		lctx, err := rl.ipLimiter.Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err), zap.String("method", info.FullMethod))
			return handler(srv, ss)
		}
		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(info.FullMethod).Inc()
			return status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry after %d", lctx.Reset)
		}
		return handler(srv, ss)
	}
}

// CheckUser enforces the per-user rate limit. Call once the caller's user
// id is known (after the first RoomService request is read). Fails open
// if the limiter store errors.
func (rl *RateLimiter) CheckUser(ctx context.Context, userID string) error {
	lctx, err := rl.userLimiter.Get(ctx, userID)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed", zap.Error(err))
		return nil
	}
	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("RoomService.user").Inc()
		return status.Errorf(codes.ResourceExhausted, "rate limit exceeded for user, retry after %d", lctx.Reset)
	}
	return nil
}

// peerKey extracts a stable rate-limit key from the grpc peer address,
// falling back to "unknown" if no peer info is attached to ctx.
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	return p.Addr.String()
}
