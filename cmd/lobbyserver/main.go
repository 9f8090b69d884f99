// Command lobbyserver wires the lobby service together and runs it: a
// grpc listener for the LobbyService RPC surface, and a secondary gin HTTP
// listener for /health/live, /health/ready and /metrics, in the teacher's cmd/v1/session/main.go
// godotenv-then-signal.Notify style.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/onnwee/lobby/internal/v1/config"
	"github.com/onnwee/lobby/internal/v1/health"
	"github.com/onnwee/lobby/internal/v1/identity"
	"github.com/onnwee/lobby/internal/v1/kv"
	"github.com/onnwee/lobby/internal/v1/lobbysession"
	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/metrics"
	"github.com/onnwee/lobby/internal/v1/ratelimit"
	"github.com/onnwee/lobby/internal/v1/registry"
	"github.com/onnwee/lobby/internal/v1/room"
	"github.com/onnwee/lobby/internal/v1/rpc"
	"github.com/onnwee/lobby/internal/v1/store"
	"github.com/onnwee/lobby/internal/v1/tracing"
	"github.com/onnwee/lobby/internal/v1/wire"
)

func main() {
	envPaths := []string{".env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("loaded environment", "path", path)
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if collectorAddr := os.Getenv("OTEL_COLLECTOR_ADDR"); collectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, "lobby", collectorAddr)
		if err != nil {
			logging.Warn(ctx, "tracing disabled: failed to init tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lobby-kv",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	users := store.NewUserRepository(redisClient, breaker)
	rooms := store.NewRoomRepository(redisClient, breaker)
	games := store.NewGameRepository(redisClient, breaker)
	pingStore := kv.New[struct{}](redisClient, "healthz:")

	sessions := registry.New(time.Duration(cfg.SessionSendTimeoutMS) * time.Millisecond)
	coordinator := room.New(rooms, users, games, sessions, cfg.CommonRoomCapacity, cfg.PrivateRoomCapacity)
	if err := coordinator.EnsureCommonRoom(ctx); err != nil {
		logging.Fatal(ctx, "failed to ensure common room", zap.Error(err))
	}

	idService := identity.New(users)
	lobbyS := lobbysession.New(coordinator, sessions, cfg.SessionSinkCapacity)

	limiter, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		logging.Fatal(ctx, "failed to build rate limiter", zap.Error(err))
	}

	server := rpc.New(idService, lobbyS, limiter)

	grpcServer := newGRPCServer(limiter, server)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logging.Fatal(ctx, "failed to listen on grpc address", zap.Error(err))
	}

	go func() {
		logging.Info(ctx, "grpc server starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(grpcLis); err != nil {
			logging.Error(ctx, "grpc server stopped", zap.Error(err))
		}
	}()

	httpSrv := newHTTPServer(pingStore)
	go func() {
		logging.Info(ctx, "http server starting", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "http server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down")

	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "http server forced to shutdown", zap.Error(err))
	}

	logging.Info(ctx, "shutdown complete")
}

func newGRPCServer(limiter *ratelimit.RateLimiter, server *rpc.Server) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(rpc.UnaryCorrelationIDInterceptor(), limiter.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(rpc.StreamCorrelationIDInterceptor(), limiter.StreamServerInterceptor()),
	)
	wire.RegisterLobbyServiceServer(s, server)
	return s
}

func newHTTPServer(pinger health.Pinger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := health.NewHandler(pinger)
	router.GET("/health/live", h.Liveness)
	router.GET("/health/ready", h.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{Addr: addr, Handler: router}
}
