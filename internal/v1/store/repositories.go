package store

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/onnwee/lobby/internal/v1/apperr"
	"github.com/onnwee/lobby/internal/v1/kv"
)

// UserRepository wraps a kv.Store[User] keyed by "user:<user_id>".
type UserRepository struct {
	store *kv.Store[User]
}

// NewUserRepository builds a UserRepository sharing cb (if non-nil) with
// sibling repositories so they fail together when the backing store is down.
func NewUserRepository(client kv.Client, cb *gobreaker.CircuitBreaker) *UserRepository {
	if cb == nil {
		return &UserRepository{store: kv.New[User](client, "user:")}
	}
	return &UserRepository{store: kv.NewWithBreaker[User](client, "user:", cb)}
}

// FindUser looks up a user by id, mapping kv.NotFound to apperr.UserNotFound.
func (r *UserRepository) FindUser(ctx context.Context, userID string) (User, error) {
	u, err := r.store.Get(ctx, userID)
	if err != nil {
		if kv.IsNotFound(err) {
			return User{}, apperr.UserNotFound(userID)
		}
		return User{}, apperr.Internal("find_user failed", err)
	}
	return u, nil
}

// UpsertUser inserts or updates a user record.
func (r *UserRepository) UpsertUser(ctx context.Context, u User) (User, error) {
	saved, err := r.store.Put(ctx, u.UserID, u)
	if err != nil {
		return User{}, apperr.Internal("upsert_user failed", err)
	}
	return saved, nil
}

// InsertUser inserts a new user record, failing with UserAlreadyExists on collision.
func (r *UserRepository) InsertUser(ctx context.Context, u User) (User, error) {
	saved, err := r.store.PutIfAbsent(ctx, u.UserID, u)
	if err != nil {
		if isDuplicate(err) {
			return User{}, apperr.UserAlreadyExists(u.UserID)
		}
		return User{}, apperr.Internal("insert_user failed", err)
	}
	return saved, nil
}

// GetUsers fetches the full records for every id, preserving order.
func (r *UserRepository) GetUsers(ctx context.Context, ids []string) ([]User, error) {
	users, err := r.store.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("get_users failed", err)
	}
	return users, nil
}

// RoomRepository wraps a kv.Store[Room] keyed by "room:<room_id>" (the
// common room uses the reserved literal CommonRoomID as its id).
type RoomRepository struct {
	store *kv.Store[Room]
}

func NewRoomRepository(client kv.Client, cb *gobreaker.CircuitBreaker) *RoomRepository {
	if cb == nil {
		return &RoomRepository{store: kv.New[Room](client, "room:")}
	}
	return &RoomRepository{store: kv.NewWithBreaker[Room](client, "room:", cb)}
}

// FindRoom looks up a room by id, mapping kv.NotFound to apperr.RoomNotFound.
func (r *RoomRepository) FindRoom(ctx context.Context, roomID string) (Room, error) {
	room, err := r.store.Get(ctx, roomID)
	if err != nil {
		if kv.IsNotFound(err) {
			return Room{}, apperr.RoomNotFound(roomID)
		}
		return Room{}, apperr.Internal("find_room failed", err)
	}
	return room, nil
}

// UpsertRoom inserts or updates a room record.
func (r *RoomRepository) UpsertRoom(ctx context.Context, room Room) (Room, error) {
	saved, err := r.store.Put(ctx, room.RoomID, room)
	if err != nil {
		return Room{}, apperr.Internal("upsert_room failed", err)
	}
	return saved, nil
}

// InsertRoom inserts a brand-new room, failing with RoomAlreadyExists on collision.
func (r *RoomRepository) InsertRoom(ctx context.Context, room Room) (Room, error) {
	saved, err := r.store.PutIfAbsent(ctx, room.RoomID, room)
	if err != nil {
		if isDuplicate(err) {
			return Room{}, apperr.RoomAlreadyExists(room.RoomID)
		}
		return Room{}, apperr.Internal("insert_room failed", err)
	}
	return saved, nil
}

// DeleteRoom removes a room record idempotently.
func (r *RoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	if err := r.store.Delete(ctx, roomID); err != nil {
		return apperr.Internal("delete_room failed", err)
	}
	return nil
}

// GameRepository wraps a kv.Store[Game] keyed by "game:<game_id>".
type GameRepository struct {
	store *kv.Store[Game]
}

func NewGameRepository(client kv.Client, cb *gobreaker.CircuitBreaker) *GameRepository {
	if cb == nil {
		return &GameRepository{store: kv.New[Game](client, "game:")}
	}
	return &GameRepository{store: kv.NewWithBreaker[Game](client, "game:", cb)}
}

// InsertGame persists a new game record.
func (r *GameRepository) InsertGame(ctx context.Context, g Game) (Game, error) {
	saved, err := r.store.Put(ctx, g.GameID, g)
	if err != nil {
		return Game{}, apperr.Internal("insert_game failed", err)
	}
	return saved, nil
}

// FindGame looks up a game by id.
func (r *GameRepository) FindGame(ctx context.Context, gameID string) (Game, error) {
	g, err := r.store.Get(ctx, gameID)
	if err != nil {
		if kv.IsNotFound(err) {
			return Game{}, apperr.Internal("find_game: not found", err)
		}
		return Game{}, apperr.Internal("find_game failed", err)
	}
	return g, nil
}

func isDuplicate(err error) bool {
	var kvErr *kv.Error
	if e, ok := err.(*kv.Error); ok {
		kvErr = e
	}
	return kvErr != nil && kvErr.Kind == kv.ErrKindDuplicateValue
}
