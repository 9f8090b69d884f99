package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodec_RegisteredUnderProtoName(t *testing.T) {
	c := encoding.GetCodec(codecName)
	require.NotNil(t, c)
	require.Equal(t, "proto", c.Name())
}

func TestCodec_RoundTripsPingRequest(t *testing.T) {
	c := encoding.GetCodec(codecName)

	in := &PingRequest{UserID: "u1"}
	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(PingRequest)
	require.NoError(t, c.Unmarshal(data, out))
	require.Equal(t, in, out)
}

func TestCodec_RoundTripsRoomServiceResponse(t *testing.T) {
	c := encoding.GetCodec(codecName)

	in := &RoomServiceResponse{
		RoomID:      "room1",
		MessageType: MessageTypeAllUsersJoined,
		UserDetails: []UserDetails{
			{UserID: "u1", UserName: "Lucky Fox", GamesPlayed: 3, Rank: 1},
		},
	}
	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(RoomServiceResponse)
	require.NoError(t, c.Unmarshal(data, out))
	require.Equal(t, in, out)
}
