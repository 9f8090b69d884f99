// Package store holds the User, Room, and Game repositories (spec.md §4.2)
// built on top of the internal/v1/kv adapter. It is the only place that
// knows the "user:", "room:", "game:" key conventions from spec.md §6.2.
package store

import "time"

// GameStatus is the lifecycle status of a Game (spec.md §3).
type GameStatus string

const (
	GameStatusInit       GameStatus = "init"
	GameStatusInProgress GameStatus = "in-progress"
	GameStatusEnd        GameStatus = "end"
)

// CommonRoomID is the reserved identifier for the always-on common room.
const CommonRoomID = "COMMON_ROOM"

// User is the persisted user record (spec.md §3).
type User struct {
	UserID      string  `json:"user_id"`
	UserName    string  `json:"user_name"`
	GamesPlayed uint32  `json:"games_played"`
	Rank        uint32  `json:"rank"`
	CurrentRoom *string `json:"current_room,omitempty"`
	CurrentGame *string `json:"current_game,omitempty"`
}

// AssignRoom sets the user's current_room; current_game is left unchanged.
func (u *User) AssignRoom(roomID string) {
	u.CurrentRoom = &roomID
}

// ClearRoom removes the user's current_room.
func (u *User) ClearRoom() {
	u.CurrentRoom = nil
}

// Room is the persisted room record (spec.md §3). CreatedAt marks when the
// room last started filling (room creation, or the common room's last
// clear-on-fill) and feeds metrics.RoomFillDuration.
type Room struct {
	RoomID    string    `json:"room_id"`
	Capacity  int       `json:"capacity"`
	Users     []string  `json:"users"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFull reports whether the room has reached its capacity.
func (r *Room) IsFull() bool {
	return len(r.Users) >= r.Capacity
}

// Contains reports whether userID is already a member.
func (r *Room) Contains(userID string) bool {
	for _, id := range r.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// AddUser appends userID to the member list and returns the new size. The
// caller is responsible for checking Contains/IsFull first; AddUser itself
// enforces neither invariant so it can be used by tests exercising the race
// the spec calls out in §9 open question 3.
func (r *Room) AddUser(userID string) int {
	r.Users = append(r.Users, userID)
	return len(r.Users)
}

// RemoveUser removes userID from the member list, if present.
func (r *Room) RemoveUser(userID string) {
	for i, id := range r.Users {
		if id == userID {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			return
		}
	}
}

// Game is the persisted game record (spec.md §3).
type Game struct {
	GameID      string     `json:"game_id"`
	UsersInGame []string   `json:"users_in_game"`
	Status      GameStatus `json:"status"`
	Prompt      string     `json:"prompt"`
}
