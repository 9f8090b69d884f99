package ratelimit

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/onnwee/lobby/internal/v1/config"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func newTestLimiter(t *testing.T, ipRate, userRate string) (*RateLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{RateLimitIPFormatted: ipRate, RateLimitUserFormatted: userRate}
	rl, err := NewRateLimiter(cfg, rc)
	if err != nil {
		t.Fatalf("NewRateLimiter: %v", err)
	}
	return rl, mr
}

func peerContext(addr string) context.Context {
	return peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP(addr), Port: 1},
	})
}

func TestNewRateLimiter_MemoryFallback(t *testing.T) {
	cfg := &config.Config{RateLimitIPFormatted: "10-M", RateLimitUserFormatted: "100-M"}
	rl, err := NewRateLimiter(cfg, nil)
	if err != nil {
		t.Fatalf("NewRateLimiter: %v", err)
	}
	if rl == nil {
		t.Fatal("expected non-nil limiter")
	}
}

func TestUnaryServerInterceptor_AllowsUnderLimit(t *testing.T) {
	rl, mr := newTestLimiter(t, "3-M", "100-M")
	defer mr.Close()

	interceptor := rl.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/lobby.v1.LobbyService/Ping"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	ctx := peerContext("10.0.0.1")
	for i := 0; i < 3; i++ {
		resp, err := interceptor(ctx, nil, info, handler)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if resp != "ok" {
			t.Fatalf("request %d: expected handler response", i)
		}
	}
}

func TestUnaryServerInterceptor_BlocksOverLimit(t *testing.T) {
	rl, mr := newTestLimiter(t, "2-M", "100-M")
	defer mr.Close()

	interceptor := rl.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/lobby.v1.LobbyService/Ping"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	ctx := peerContext("10.0.0.2")
	for i := 0; i < 2; i++ {
		if _, err := interceptor(ctx, nil, info, handler); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	_, err := interceptor(ctx, nil, info, handler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestUnaryServerInterceptor_FailsOpenOnStoreError(t *testing.T) {
	rl, mr := newTestLimiter(t, "1-M", "100-M")
	mr.Close() // kill redis before use

	interceptor := rl.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/lobby.v1.LobbyService/Ping"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	ctx := peerContext("10.0.0.3")
	resp, err := interceptor(ctx, nil, info, handler)
	if err != nil {
		t.Fatalf("expected fail-open (no error), got: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("expected handler response on fail-open")
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestStreamServerInterceptor_BlocksOverLimit(t *testing.T) {
	rl, mr := newTestLimiter(t, "1-M", "100-M")
	defer mr.Close()

	interceptor := rl.StreamServerInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/lobby.v1.LobbyService/RoomService"}
	handler := func(srv interface{}, ss grpc.ServerStream) error { return nil }

	ss := &fakeServerStream{ctx: peerContext("10.0.0.4")}
	if err := interceptor(nil, ss, info, handler); err != nil {
		t.Fatalf("first stream: unexpected error: %v", err)
	}
	if err := interceptor(nil, ss, info, handler); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestCheckUser_BlocksOverLimit(t *testing.T) {
	rl, mr := newTestLimiter(t, "100-M", "2-M")
	defer mr.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := rl.CheckUser(ctx, "user-1"); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}
	if err := rl.CheckUser(ctx, "user-1"); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}

	// a different user has its own independent budget
	if err := rl.CheckUser(ctx, "user-2"); err != nil {
		t.Fatalf("unexpected error for distinct user: %v", err)
	}
}
