package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/lobby/internal/v1/apperr"
	"github.com/onnwee/lobby/internal/v1/lobbysession"
	"github.com/onnwee/lobby/internal/v1/store"
	"github.com/onnwee/lobby/internal/v1/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeIdentity struct {
	user store.User
	err  error
}

func (f *fakeIdentity) Ping(ctx context.Context, userID string) (store.User, error) {
	return f.user, f.err
}

type fakeSession struct {
	err         error
	gotCallerID string
	gotReq      *wire.RoomServiceRequest
}

func (f *fakeSession) Serve(ctx context.Context, callerID string, req *wire.RoomServiceRequest, send lobbysession.Sender) error {
	f.gotCallerID = callerID
	f.gotReq = req
	return f.err
}

type fakeSender struct {
	sent []*wire.RoomServiceResponse
}

func (f *fakeSender) Send(resp *wire.RoomServiceResponse) error {
	f.sent = append(f.sent, resp)
	return nil
}

func TestPing_Success(t *testing.T) {
	s := New(&fakeIdentity{user: store.User{UserID: "u1", UserName: "Lucky Fox"}}, &fakeSession{}, nil)

	resp, err := s.Ping(context.Background(), &wire.PingRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.UserID != "u1" || resp.UserName != "Lucky Fox" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPing_UserNotFound_MapsToNotFound(t *testing.T) {
	s := New(&fakeIdentity{err: apperr.UserNotFound("missing")}, &fakeSession{}, nil)

	_, err := s.Ping(context.Background(), &wire.PingRequest{UserID: "missing"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRoomService_MissingClientID(t *testing.T) {
	s := New(&fakeIdentity{}, &fakeSession{}, nil)

	err := s.RoomService(&wire.RoomServiceRequest{}, &grpcStreamStub{sender: &fakeSender{}})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestRoomService_DelegatesToSession(t *testing.T) {
	sess := &fakeSession{}
	s := New(&fakeIdentity{}, sess, nil)

	req := &wire.RoomServiceRequest{ClientID: "u1", RequestType: wire.RequestTypeJoinRoom}
	err := s.RoomService(req, &grpcStreamStub{sender: &fakeSender{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.gotCallerID != "u1" {
		t.Fatalf("expected session to be called with caller id u1, got %q", sess.gotCallerID)
	}
}

func TestRoomService_DomainErrorMapsToStatus(t *testing.T) {
	sess := &fakeSession{err: apperr.RoomNotFound("r1")}
	s := New(&fakeIdentity{}, sess, nil)

	req := &wire.RoomServiceRequest{ClientID: "u1", RequestType: wire.RequestTypeJoinRoom, RoomID: "r1"}
	err := s.RoomService(req, &grpcStreamStub{sender: &fakeSender{}})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestToGRPCStatus_PassesThroughExistingStatus(t *testing.T) {
	original := status.Error(codes.Unavailable, "peer gone")
	if got := toGRPCStatus(original); got != original {
		t.Fatalf("expected pass-through of existing status error, got %v", got)
	}
}

func TestToGRPCStatus_WrapsPlainError(t *testing.T) {
	err := toGRPCStatus(errors.New("boom"))
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}
