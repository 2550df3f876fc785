package network

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amalg/dci-bomberman/internal/game"
)

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	actions := game.Actions{MoveLeft: true, PlantBomb: true}
	require.NoError(t, Encode(&buf, MsgAction, actions))
	require.NoError(t, Encode(&buf, MsgStart, nil))

	env, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgAction, env.Type)

	var got game.Actions
	require.NoError(t, DecodePayload(env, &got))
	assert.Equal(t, actions, got)

	env, err = Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgStart, env.Type)
	assert.Error(t, DecodePayload(env, &got), "start carries no payload")
}

func TestActionWireFormat(t *testing.T) {
	body, err := Marshal(MsgAction, game.Actions{MoveUp: true})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"action","payload":{"move_up":true,"move_down":false,"move_left":false,"move_right":false,"plant_bomb":false}}`,
		string(body))
}

func TestDecodeRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(maxMessageSize+1)))

	_, err := Decode(&buf)
	assert.ErrorContains(t, err, "too large")
}

func TestDecodeTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, MsgJoin, JoinMsg{PlayerID: "p1", IsPlaying: true}))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])

	_, err := Decode(truncated)
	assert.Error(t, err)
}
