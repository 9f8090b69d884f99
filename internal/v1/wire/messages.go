// Package wire defines the on-the-wire request/response shapes for the
// lobby RPC surface (spec.md §6.1) and the grpc plumbing (codec +
// ServiceDesc) needed to serve them without a protoc-generated stub; see
// codec.go for why.
package wire

// RequestType enumerates RoomService's request_type field.
type RequestType uint32

const (
	RequestTypeCreateRoom RequestType = 1
	RequestTypeJoinRoom   RequestType = 2
)

// MessageType enumerates RoomServiceResponse's message_type field.
type MessageType uint32

const (
	MessageTypeInit           MessageType = 1 // RoomCreated
	MessageTypeUserJoined     MessageType = 2
	MessageTypeAllUsersJoined MessageType = 3 // GameStart
)

// PingRequest is the unary Ping call's request (spec.md §6.1).
type PingRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// PingResponse is the unary Ping call's response.
type PingResponse struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// RoomServiceRequest opens a RoomService stream.
type RoomServiceRequest struct {
	ClientID    string      `json:"client_id"`
	RoomID      string      `json:"room_id,omitempty"`
	RequestType RequestType `json:"request_type"`
}

// UserDetails is the public projection of a store.User carried on the wire.
type UserDetails struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	GamesPlayed uint32 `json:"games_played"`
	Rank        uint32 `json:"rank"`
}

// RoomServiceResponse is one item in the RoomService response stream.
type RoomServiceResponse struct {
	RoomID      string        `json:"room_id"`
	MessageType MessageType   `json:"message_type"`
	UserDetails []UserDetails `json:"user_details"`
}
