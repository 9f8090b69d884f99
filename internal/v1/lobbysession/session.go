// Package lobbysession implements the Streaming Session lifecycle of
// spec.md §4.6: bind a session into the registry before any mutation can
// enqueue to it, run the request's synchronous mutation, then drain the
// session's sink onto the RPC stream until either the peer disconnects or
// an event marks the stream for server-initiated close.
//
// The outbound pump and disconnect watcher described in spec.md §4.6 steps
// 5-6 are collapsed into the single goroutine the transport already gives
// each stream, rather than spawned as two further goroutines — grounded on
// the teacher's session.Client, which itself runs its write pump on the
// goroutine ServeWs hands it, with disconnect detected via the same select
// loop instead of a second watcher goroutine.
package lobbysession

import (
	"context"
	"fmt"

	"github.com/onnwee/lobby/internal/v1/apperr"
	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/registry"
	"github.com/onnwee/lobby/internal/v1/room"
	"github.com/onnwee/lobby/internal/v1/store"
	"github.com/onnwee/lobby/internal/v1/wire"
	"go.uber.org/zap"
)

// Coordinator is the subset of room.Coordinator a Session drives.
type Coordinator interface {
	CreateRoom(ctx context.Context, callerID, roomID string) error
	JoinRoom(ctx context.Context, callerID, roomID string) error
	LeaveRoom(ctx context.Context, userID string) error
}

var _ Coordinator = (*room.Coordinator)(nil)

// Sender is satisfied by wire.LobbyService_RoomServiceServer; kept as a
// narrower interface here so tests don't need a real grpc stream.
type Sender interface {
	Send(*wire.RoomServiceResponse) error
}

// Session drives one RoomService call end-to-end.
type Session struct {
	coordinator  Coordinator
	sessions     *registry.Registry
	sinkCapacity int
}

// New builds a Session. sinkCapacity bounds each stream's outbound buffer
// (SPEC_FULL.md §A.3's SESSION_SINK_CAPACITY, default 128).
func New(coordinator Coordinator, sessions *registry.Registry, sinkCapacity int) *Session {
	return &Session{coordinator: coordinator, sessions: sessions, sinkCapacity: sinkCapacity}
}

// Serve implements spec.md §4.6 in full: registry bind, mutation, drain
// loop, cleanup. ctx must be the stream's context so disconnect is
// observed via ctx.Done(). callerID is the already-authenticated user id
// (resolved by internal/v1/rpc's outer wrapper per §4.7).
func (s *Session) Serve(ctx context.Context, callerID string, req *wire.RoomServiceRequest, send Sender) error {
	sink := registry.NewSink(s.sinkCapacity)
	s.sessions.Insert(ctx, callerID, sink)

	cleanup := func() {
		s.sessions.Remove(callerID, sink)
		if err := s.coordinator.LeaveRoom(context.WithoutCancel(ctx), callerID); err != nil {
			logging.Error(ctx, "lobbysession: cleanup leave_room failed", zap.Error(err))
		}
	}

	if err := s.runMutation(ctx, callerID, req); err != nil {
		cleanup()
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info(ctx, "lobbysession: stream context done, cleaning up")
			cleanup()
			return ctx.Err()

		case ev, ok := <-sink.Chan():
			if !ok {
				// sink was closed out from under us: this session was
				// replaced by a newer one for the same user (spec.md §9
				// open question 4). Do not run LeaveRoom cleanup here —
				// the replacing session owns the user's registry entry
				// now and must not have its room membership torn down.
				logging.Info(ctx, "lobbysession: sink closed, session replaced")
				return nil
			}

			mem, ok := ev.(room.MembershipEvent)
			if !ok {
				logging.Error(ctx, "lobbysession: unexpected event type on sink")
				continue
			}

			if err := send.Send(toWireResponse(mem)); err != nil {
				logging.Warn(ctx, "lobbysession: send failed, peer likely gone", zap.Error(err))
				cleanup()
				return err
			}

			if mem.CloseStream {
				logging.Info(ctx, "lobbysession: closing stream after game start")
				s.sessions.Remove(callerID, sink)
				return nil
			}
		}
	}
}

func (s *Session) runMutation(ctx context.Context, callerID string, req *wire.RoomServiceRequest) error {
	switch req.RequestType {
	case wire.RequestTypeCreateRoom:
		return s.coordinator.CreateRoom(ctx, callerID, req.RoomID)
	case wire.RequestTypeJoinRoom:
		return s.coordinator.JoinRoom(ctx, callerID, req.RoomID)
	default:
		return apperr.BadRequest(fmt.Sprintf("unknown request_type %d", req.RequestType))
	}
}

func toWireResponse(ev room.MembershipEvent) *wire.RoomServiceResponse {
	details := make([]wire.UserDetails, 0, len(ev.Users))
	for _, u := range ev.Users {
		details = append(details, userDetails(u))
	}
	return &wire.RoomServiceResponse{
		RoomID:      ev.RoomID,
		MessageType: wire.MessageType(ev.MessageType),
		UserDetails: details,
	}
}

func userDetails(u store.User) wire.UserDetails {
	return wire.UserDetails{
		UserID:      u.UserID,
		UserName:    u.UserName,
		GamesPlayed: u.GamesPlayed,
		Rank:        u.Rank,
	}
}
