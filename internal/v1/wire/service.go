package wire

import (
	"context"

	"google.golang.org/grpc"
)

// LobbyServiceServer is the interface internal/v1/rpc implements and
// registers against a *grpc.Server via RegisterLobbyServiceServer. Hand
// written in place of a protoc-gen-go-grpc stub (see codec.go).
type LobbyServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	RoomService(*RoomServiceRequest, LobbyService_RoomServiceServer) error
}

// LobbyService_RoomServiceServer is the server-side handle for a
// RoomService stream.
type LobbyService_RoomServiceServer interface {
	Send(*RoomServiceResponse) error
	grpc.ServerStream
}

type lobbyServiceRoomServiceServer struct {
	grpc.ServerStream
}

func (x *lobbyServiceRoomServiceServer) Send(m *RoomServiceResponse) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterLobbyServiceServer registers srv as the LobbyService implementation
// on s, mirroring the protoc-gen-go-grpc-generated function of the same shape.
func RegisterLobbyServiceServer(s grpc.ServiceRegistrar, srv LobbyServiceServer) {
	s.RegisterService(&LobbyService_ServiceDesc, srv)
}

func _LobbyService_Ping_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyServiceServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/lobby.v1.LobbyService/Ping",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LobbyServiceServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LobbyService_RoomService_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(RoomServiceRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(LobbyServiceServer).RoomService(m, &lobbyServiceRoomServiceServer{ServerStream: stream})
}

// LobbyService_ServiceDesc is the grpc.ServiceDesc for LobbyService,
// exposing the unary Ping and server-streaming RoomService methods of
// spec.md §6.1.
var LobbyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "lobby.v1.LobbyService",
	HandlerType: (*LobbyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler:    _LobbyService_Ping_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "RoomService",
			Handler:       _LobbyService_RoomService_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "lobby/v1/lobby.proto",
}
