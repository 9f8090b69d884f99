// Package room implements the Room Coordinator state machine (spec.md
// §4.5): CreateRoom and JoinRoom, fill detection, and the fan-out of
// membership events through the Session Registry. Grounded on the
// teacher's internal/v1/room.Room (per-room mutex, broadcast-on-event),
// generalized from a long-lived WebRTC room to a one-shot matchmaking
// room backed entirely by internal/v1/store instead of in-memory state.
package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	oklogulid "github.com/oklog/ulid"

	"github.com/onnwee/lobby/internal/v1/apperr"
	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/metrics"
	"github.com/onnwee/lobby/internal/v1/registry"
	"github.com/onnwee/lobby/internal/v1/store"
	"go.uber.org/zap"
)

// MessageType mirrors the wire's message_type enum (spec.md §6.1), carried
// on domain events so internal/v1/wire doesn't need to re-derive it.
type MessageType uint32

const (
	MessageTypeInit           MessageType = 1 // RoomCreated
	MessageTypeUserJoined     MessageType = 2
	MessageTypeAllUsersJoined MessageType = 3 // GameStart

	// closes the stream: defined in spec.md §4.6 step 6.
)

// MembershipEvent is enqueued into a session's registry.Sink by the
// Coordinator. CloseStream mirrors spec.md's should_close_stream flag,
// currently true only for AllUsersJoined.
type MembershipEvent struct {
	RoomID      string
	MessageType MessageType
	Users       []store.User
	CloseStream bool
}

// promptCatalog is a fixed 5-entry flavor-string list selected round-robin
// at fill time (SPEC_FULL.md §D: grounded on original_source/'s small
// fixed prompt set, without adding new configuration surface).
var promptCatalog = []string{
	"describe a lighthouse in a storm",
	"name three things that should never meet",
	"invent a holiday and its strangest tradition",
	"describe the last sound before silence",
	"draw a map of somewhere that doesn't exist",
}

// Coordinator implements CreateRoom/JoinRoom over the store repositories
// and the session registry.
type Coordinator struct {
	rooms    *store.RoomRepository
	users    *store.UserRepository
	games    *store.GameRepository
	sessions *registry.Registry

	commonRoomCapacity  int
	privateRoomCapacity int

	locks      keyedLock
	promptMu   sync.Mutex
	promptNext int

	entropy *oklogulid.MonotonicEntropy
	entMu   sync.Mutex
}

// New builds a Coordinator. commonRoomCapacity and privateRoomCapacity come
// from internal/v1/config (defaults 5 and 2 per SPEC_FULL.md §D).
func New(rooms *store.RoomRepository, users *store.UserRepository, games *store.GameRepository, sessions *registry.Registry, commonRoomCapacity, privateRoomCapacity int) *Coordinator {
	return &Coordinator{
		rooms:               rooms,
		users:               users,
		games:               games,
		sessions:            sessions,
		commonRoomCapacity:  commonRoomCapacity,
		privateRoomCapacity: privateRoomCapacity,
		entropy:             oklogulid.Monotonic(rand.Reader, 0),
	}
}

// EnsureCommonRoom idempotently creates the reserved common room at the
// configured capacity if it does not already exist. Called once at
// startup by cmd/lobbyserver.
func (c *Coordinator) EnsureCommonRoom(ctx context.Context) error {
	_, err := c.rooms.FindRoom(ctx, store.CommonRoomID)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, apperr.KindRoomNotFound) {
		return err
	}
	_, err = c.rooms.InsertRoom(ctx, store.Room{
		RoomID:    store.CommonRoomID,
		Capacity:  c.commonRoomCapacity,
		Users:     []string{},
		CreatedAt: time.Now(),
	})
	if err != nil {
		if apperr.Is(err, apperr.KindRoomAlreadyExists) {
			return nil
		}
		return err
	}
	metrics.ActiveRooms.Inc()
	return nil
}

// CreateRoom implements spec.md §4.5.1. roomID may be empty, in which case
// a fresh 6-digit numeric id is generated. The creator is NOT added to the
// room's member list here; see the doc note below.
//
// CreateRoom does not add the creator to room.users — membership is set by
// a later JoinRoom call. The RoomCreated event carries the creator alone as
// a UI hint, not as the authoritative roster. This mirrors a source-observed
// behavior in the system this was modeled on and is kept deliberately; see
// DESIGN.md open-question log before "fixing" it.
func (c *Coordinator) CreateRoom(ctx context.Context, callerID, roomID string) error {
	if roomID == "" {
		roomID = c.generateRoomID()
	}
	ctx = logging.WithRoom(ctx, roomID)

	unlock := c.locks.lock(roomID)
	defer unlock()

	_, err := c.rooms.FindRoom(ctx, roomID)
	if err == nil {
		return apperr.RoomAlreadyExists(roomID)
	}
	if !apperr.Is(err, apperr.KindRoomNotFound) {
		logging.Error(ctx, "room: create_room lookup failed", zap.Error(err))
		return apperr.Internal("create_room lookup failed", err)
	}

	if _, err := c.rooms.InsertRoom(ctx, store.Room{
		RoomID:    roomID,
		Capacity:  c.privateRoomCapacity,
		Users:     []string{},
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}
	metrics.ActiveRooms.Inc()

	creator, err := c.users.FindUser(ctx, callerID)
	if err != nil {
		return err
	}

	logging.Info(ctx, "room: created", zap.String("creator", callerID))
	c.sessions.SendTo(ctx, callerID, MembershipEvent{
		RoomID:      roomID,
		MessageType: MessageTypeInit,
		Users:       []store.User{creator},
	})
	return nil
}

// JoinRoom implements spec.md §4.5.2: preconditions, membership mutation,
// fill-check fan-out, and the common-room-clear vs. private-room-delete
// split on fill.
func (c *Coordinator) JoinRoom(ctx context.Context, callerID, roomID string) error {
	if roomID == "" {
		roomID = store.CommonRoomID
	}
	ctx = logging.WithRoom(ctx, roomID)

	unlock := c.locks.lock(roomID)
	defer unlock()

	rm, err := c.rooms.FindRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.Contains(callerID) {
		return apperr.BadRequest("already in room")
	}
	if rm.IsFull() {
		return apperr.BadRequest("room at capacity")
	}

	rm.AddUser(callerID)
	if _, err := c.rooms.UpsertRoom(ctx, rm); err != nil {
		return apperr.Internal("join_room upsert_room failed", err)
	}

	caller, err := c.users.FindUser(ctx, callerID)
	if err != nil {
		return err
	}
	caller.AssignRoom(roomID)
	if _, err := c.users.UpsertUser(ctx, caller); err != nil {
		return apperr.Internal("join_room assign current_room failed", err)
	}

	members := append([]string(nil), rm.Users...)
	memberUsers, err := c.users.GetUsers(ctx, members)
	if err != nil {
		return apperr.Internal("join_room get_users failed", err)
	}

	if len(members) == rm.Capacity {
		return c.fillRoom(ctx, rm, memberUsers)
	}

	for _, uid := range members {
		if uid == callerID {
			continue
		}
		c.sessions.SendTo(ctx, uid, MembershipEvent{
			RoomID:      roomID,
			MessageType: MessageTypeUserJoined,
			Users:       memberUsers,
		})
	}
	c.sessions.SendTo(ctx, callerID, MembershipEvent{
		RoomID:      roomID,
		MessageType: MessageTypeInit,
		Users:       memberUsers,
	})
	return nil
}

// fillRoom implements spec.md §4.5.2 step 6: create the Game, fan out
// AllUsersJoined to every member (including the caller), and either clear
// the common room's membership or delete the private room.
func (c *Coordinator) fillRoom(ctx context.Context, rm store.Room, members []store.User) error {
	g := store.Game{
		GameID:      c.generateGameID(),
		UsersInGame: rm.Users,
		Status:      store.GameStatusInit,
		Prompt:      c.nextPrompt(),
	}
	if _, err := c.games.InsertGame(ctx, g); err != nil {
		return apperr.Internal("fill_room insert_game failed", err)
	}

	for _, u := range members {
		c.sessions.SendTo(ctx, u.UserID, MembershipEvent{
			RoomID:      rm.RoomID,
			MessageType: MessageTypeAllUsersJoined,
			Users:       members,
			CloseStream: true,
		})
	}

	metrics.RoomFillDuration.Observe(time.Since(rm.CreatedAt).Seconds())

	if rm.RoomID == store.CommonRoomID {
		rm.Users = []string{}
		rm.CreatedAt = time.Now()
		if _, err := c.rooms.UpsertRoom(ctx, rm); err != nil {
			return apperr.Internal("fill_room clear common room failed", err)
		}
		logging.Info(ctx, "room: common room filled and cleared", zap.String("game_id", g.GameID))
		return nil
	}

	if err := c.rooms.DeleteRoom(ctx, rm.RoomID); err != nil {
		return apperr.Internal("fill_room delete private room failed", err)
	}
	metrics.ActiveRooms.Dec()
	logging.Info(ctx, "room: private room filled and deleted", zap.String("game_id", g.GameID))
	return nil
}

// LeaveRoom removes userID from their current room, if any, and clears
// their current_room pointer. Idempotent: called from session cleanup
// (spec.md §4.6 step 7) whether or not the user is actually in a room.
func (c *Coordinator) LeaveRoom(ctx context.Context, userID string) error {
	u, err := c.users.FindUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindUserNotFound) {
			return nil
		}
		return err
	}
	if u.CurrentRoom == nil {
		return nil
	}
	roomID := *u.CurrentRoom
	ctx = logging.WithRoom(ctx, roomID)

	unlock := c.locks.lock(roomID)
	defer unlock()

	rm, err := c.rooms.FindRoom(ctx, roomID)
	if err != nil {
		if apperr.Is(err, apperr.KindRoomNotFound) {
			u.ClearRoom()
			_, err := c.users.UpsertUser(ctx, u)
			return err
		}
		return err
	}
	if !rm.Contains(userID) {
		u.ClearRoom()
		_, err := c.users.UpsertUser(ctx, u)
		return err
	}

	rm.RemoveUser(userID)
	if _, err := c.rooms.UpsertRoom(ctx, rm); err != nil {
		return apperr.Internal("leave_room upsert_room failed", err)
	}
	u.ClearRoom()
	if _, err := c.users.UpsertUser(ctx, u); err != nil {
		return apperr.Internal("leave_room clear current_room failed", err)
	}
	logging.Info(ctx, "room: user left on disconnect", zap.String("user_id", userID))
	return nil
}

func (c *Coordinator) nextPrompt() string {
	c.promptMu.Lock()
	defer c.promptMu.Unlock()
	p := promptCatalog[c.promptNext%len(promptCatalog)]
	c.promptNext++
	return p
}

func (c *Coordinator) generateRoomID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand failure is not recoverable; fall back to a
		// time-seeded id rather than panicking the request.
		return fmt.Sprintf("%06d", time.Now().UnixNano()%900000+100000)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// generateGameID returns a lexicographically-sortable-by-creation-time id
// (spec.md §6.2), grounded on oklog/ulid's monotonic ULID generator.
func (c *Coordinator) generateGameID() string {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	id := oklogulid.MustNew(oklogulid.Timestamp(time.Now()), c.entropy)
	return id.String()
}
