package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFrameMove(t *testing.T) {
	raw := []byte(`{"type":"move","room_id":"r1","from":"e2","to":"e4","resulting_position":"fen-after-e4"}`)
	f, err := ParseFrame(raw)
	require.NoError(t, err)
	require.Equal(t, TypeMove, f.Type)
	require.Equal(t, "r1", f.RoomID)
	require.Equal(t, "e2", f.From)
	require.Equal(t, "e4", f.To)
	require.Equal(t, "fen-after-e4", f.Position)
}

func TestParseFrameIdentity(t *testing.T) {
	raw := []byte(`{"type":"find_match","identity":{"id":7,"username":"alice"}}`)
	f, err := ParseFrame(raw)
	require.NoError(t, err)
	require.NotNil(t, f.Identity)
	require.Equal(t, int64(7), f.Identity.ID)
	require.Equal(t, "alice", f.Identity.Username)
}

func TestParseFrameTrimsType(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":" chat ","text":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, TypeChat, f.Type)
}

func TestParseFrameMalformed(t *testing.T) {
	cases := map[string][]byte{
		"broken json":  []byte(`{"type":"move"`),
		"unknown type": []byte(`{"type":"teleport"}`),
		"missing type": []byte(`{"room_id":"r1"}`),
		"empty":        []byte(``),
	}
	for name, raw := range cases {
		_, err := ParseFrame(raw)
		require.ErrorIs(t, err, ErrMalformedFrame, name)
	}
}

func TestParseFrameIgnoresUnknownFields(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"join","room_id":"r1","client_build":"9.9.9"}`))
	require.NoError(t, err)
	require.Equal(t, TypeJoin, f.Type)
}
