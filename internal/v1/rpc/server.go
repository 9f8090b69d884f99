// Package rpc implements the RPC Surface of spec.md §4.7: the outer
// wrapper around internal/v1/identity and internal/v1/lobbysession that
// resolves a caller's identity, applies per-user rate limiting, and maps
// domain errors onto grpc status codes, in the teacher's handler-wraps-
// service style (internal/v1/session.Client wrapping internal/v1/room).
package rpc

import (
	"context"

	"github.com/onnwee/lobby/internal/v1/apperr"
	"github.com/onnwee/lobby/internal/v1/lobbysession"
	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/metrics"
	"github.com/onnwee/lobby/internal/v1/ratelimit"
	"github.com/onnwee/lobby/internal/v1/store"
	"github.com/onnwee/lobby/internal/v1/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Identity is the subset of identity.Service the Server needs.
type Identity interface {
	Ping(ctx context.Context, userID string) (store.User, error)
}

// Session is the subset of lobbysession.Session the Server needs.
type Session interface {
	Serve(ctx context.Context, callerID string, req *wire.RoomServiceRequest, send lobbysession.Sender) error
}

var _ Session = (*lobbysession.Session)(nil)

// Server implements wire.LobbyServiceServer.
type Server struct {
	identity Identity
	session  Session
	limiter  *ratelimit.RateLimiter
}

var _ wire.LobbyServiceServer = (*Server)(nil)

// New builds a Server. limiter may be nil to disable per-user rate limiting
// (e.g. in tests).
func New(identity Identity, session Session, limiter *ratelimit.RateLimiter) *Server {
	return &Server{identity: identity, session: session, limiter: limiter}
}

// Ping implements spec.md §4.3 over the grpc transport.
func (s *Server) Ping(ctx context.Context, req *wire.PingRequest) (*wire.PingResponse, error) {
	u, err := s.identity.Ping(ctx, req.UserID)
	if err != nil {
		metrics.PingRequests.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, toGRPCStatus(err)
	}
	metrics.PingRequests.WithLabelValues("success").Inc()
	return &wire.PingResponse{UserID: u.UserID, UserName: u.UserName}, nil
}

// RoomService implements spec.md §4.6/§4.7: resolve the caller from the
// first request, apply the per-user rate limit, then hand off to the
// session for the rest of the stream's lifetime.
func (s *Server) RoomService(req *wire.RoomServiceRequest, stream wire.LobbyService_RoomServiceServer) error {
	ctx := stream.Context()
	if req.ClientID == "" {
		return status.Error(codes.InvalidArgument, "client_id is required")
	}
	ctx = logging.WithUser(ctx, req.ClientID)

	if _, err := s.identity.Ping(ctx, req.ClientID); err != nil {
		logging.Warn(ctx, "rpc: room_service rejected, unknown client", zap.Error(err))
		return toGRPCStatus(err)
	}

	if s.limiter != nil {
		if err := s.limiter.CheckUser(ctx, req.ClientID); err != nil {
			return err
		}
	}

	metrics.IncActiveSessions()
	defer metrics.DecActiveSessions()

	err := s.session.Serve(ctx, req.ClientID, req, stream)
	outcome := "success"
	if err != nil {
		outcome = outcomeLabel(err)
	}
	metrics.RoomServiceRequests.WithLabelValues(requestTypeLabel(req.RequestType), outcome).Inc()
	if err != nil {
		logging.Error(ctx, "rpc: room_service failed", zap.Error(err))
		return toGRPCStatus(err)
	}
	return nil
}

// toGRPCStatus maps an apperr.Error onto its grpc status per spec.md §6.3's
// error taxonomy. Errors that already carry a grpc status pass through
// unchanged; any other non-apperr error (context cancellation, send
// failures) maps to Internal.
func toGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case apperr.Is(err, apperr.KindUserNotFound), apperr.Is(err, apperr.KindRoomNotFound):
		return status.Error(codes.NotFound, err.Error())
	case apperr.Is(err, apperr.KindUserAlreadyExists), apperr.Is(err, apperr.KindRoomAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case apperr.Is(err, apperr.KindBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.Is(err, apperr.KindInternal):
		return status.Error(codes.Internal, "internal error")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func outcomeLabel(err error) string {
	switch {
	case apperr.Is(err, apperr.KindUserNotFound):
		return "user_not_found"
	case apperr.Is(err, apperr.KindUserAlreadyExists):
		return "user_already_exists"
	case apperr.Is(err, apperr.KindRoomNotFound):
		return "room_not_found"
	case apperr.Is(err, apperr.KindRoomAlreadyExists):
		return "room_already_exists"
	case apperr.Is(err, apperr.KindBadRequest):
		return "bad_request"
	default:
		return "internal_error"
	}
}

func requestTypeLabel(rt wire.RequestType) string {
	switch rt {
	case wire.RequestTypeCreateRoom:
		return "create_room"
	case wire.RequestTypeJoinRoom:
		return "join_room"
	default:
		return "unknown"
	}
}
