package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/lobby/internal/v1/apperr"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestUserRepository_InsertThenFind(t *testing.T) {
	repo := NewUserRepository(newTestClient(t), nil)
	ctx := context.Background()

	u := User{UserID: "u1", UserName: "Lucky Fox"}
	saved, err := repo.InsertUser(ctx, u)
	require.NoError(t, err)
	require.Equal(t, u, saved)

	found, err := repo.FindUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, u, found)
}

func TestUserRepository_FindUser_NotFound(t *testing.T) {
	repo := NewUserRepository(newTestClient(t), nil)
	_, err := repo.FindUser(context.Background(), "ghost")
	require.True(t, apperr.Is(err, apperr.KindUserNotFound))
}

func TestUserRepository_InsertUser_Duplicate(t *testing.T) {
	repo := NewUserRepository(newTestClient(t), nil)
	ctx := context.Background()

	_, err := repo.InsertUser(ctx, User{UserID: "dup", UserName: "first"})
	require.NoError(t, err)

	_, err = repo.InsertUser(ctx, User{UserID: "dup", UserName: "second"})
	require.True(t, apperr.Is(err, apperr.KindUserAlreadyExists))
}

func TestUserRepository_GetUsers_PreservesOrder(t *testing.T) {
	repo := NewUserRepository(newTestClient(t), nil)
	ctx := context.Background()

	_, err := repo.InsertUser(ctx, User{UserID: "a", UserName: "Alpha"})
	require.NoError(t, err)
	_, err = repo.InsertUser(ctx, User{UserID: "b", UserName: "Bravo"})
	require.NoError(t, err)

	got, err := repo.GetUsers(ctx, []string{"b", "a"})
	require.NoError(t, err)
	require.Equal(t, []User{{UserID: "b", UserName: "Bravo"}, {UserID: "a", UserName: "Alpha"}}, got)
}

func TestUserRepository_UpsertUser_UpdatesExisting(t *testing.T) {
	repo := NewUserRepository(newTestClient(t), nil)
	ctx := context.Background()

	_, err := repo.InsertUser(ctx, User{UserID: "u1", UserName: "Lucky Fox"})
	require.NoError(t, err)

	room := "COMMON_ROOM"
	updated := User{UserID: "u1", UserName: "Lucky Fox", CurrentRoom: &room}
	saved, err := repo.UpsertUser(ctx, updated)
	require.NoError(t, err)
	require.Equal(t, &room, saved.CurrentRoom)

	found, err := repo.FindUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, room, *found.CurrentRoom)
}

func TestRoomRepository_InsertFindDelete(t *testing.T) {
	repo := NewRoomRepository(newTestClient(t), nil)
	ctx := context.Background()

	room := Room{RoomID: "r1", Capacity: 2, Users: []string{"u1"}}
	_, err := repo.InsertRoom(ctx, room)
	require.NoError(t, err)

	found, err := repo.FindRoom(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, room, found)

	require.NoError(t, repo.DeleteRoom(ctx, "r1"))
	require.NoError(t, repo.DeleteRoom(ctx, "r1")) // idempotent

	_, err = repo.FindRoom(ctx, "r1")
	require.True(t, apperr.Is(err, apperr.KindRoomNotFound))
}

func TestRoomRepository_InsertRoom_Duplicate(t *testing.T) {
	repo := NewRoomRepository(newTestClient(t), nil)
	ctx := context.Background()

	_, err := repo.InsertRoom(ctx, Room{RoomID: "r1", Capacity: 5})
	require.NoError(t, err)

	_, err = repo.InsertRoom(ctx, Room{RoomID: "r1", Capacity: 2})
	require.True(t, apperr.Is(err, apperr.KindRoomAlreadyExists))
}

func TestRoomRepository_UpsertRoom_OverwritesMembers(t *testing.T) {
	repo := NewRoomRepository(newTestClient(t), nil)
	ctx := context.Background()

	_, err := repo.InsertRoom(ctx, Room{RoomID: CommonRoomID, Capacity: 5})
	require.NoError(t, err)

	room, err := repo.FindRoom(ctx, CommonRoomID)
	require.NoError(t, err)
	room.AddUser("u1")

	saved, err := repo.UpsertRoom(ctx, room)
	require.NoError(t, err)
	require.True(t, saved.Contains("u1"))
}

func TestGameRepository_InsertThenFind(t *testing.T) {
	repo := NewGameRepository(newTestClient(t), nil)
	ctx := context.Background()

	g := Game{GameID: "g1", UsersInGame: []string{"u1", "u2"}, Status: GameStatusInit, Prompt: "describe a lighthouse"}
	_, err := repo.InsertGame(ctx, g)
	require.NoError(t, err)

	found, err := repo.FindGame(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, g, found)
}
