package rpc

import (
	"context"

	"github.com/onnwee/lobby/internal/v1/wire"
	"google.golang.org/grpc"
)

// grpcStreamStub implements wire.LobbyService_RoomServiceServer for tests
// that don't need a real grpc transport.
type grpcStreamStub struct {
	grpc.ServerStream
	sender *fakeSender
}

func (s *grpcStreamStub) Send(resp *wire.RoomServiceResponse) error {
	return s.sender.Send(resp)
}

func (s *grpcStreamStub) Context() context.Context {
	return context.Background()
}
