package network

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/amalg/dci-bomberman/internal/game"
)

// MsgType identifies the type of network message.
type MsgType string

const (
	MsgJoin     MsgType = "join"
	MsgWelcome  MsgType = "welcome"
	MsgAction   MsgType = "action"
	MsgState    MsgType = "state"
	MsgGameOver MsgType = "gameover"
	MsgError    MsgType = "error"
	MsgStart    MsgType = "start"
	MsgPause    MsgType = "pause"
	MsgResume   MsgType = "resume"
	MsgFillBots MsgType = "fill_bots"
)

// maxMessageSize bounds a single frame on every transport.
const maxMessageSize = 1 << 20

// Envelope wraps all messages with a type discriminator for deserialization.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client → Server Messages ---

// JoinMsg is the first message of every connection. An empty PlayerID gets
// one assigned; an empty RoomID lets the server pick a room. Viewers set
// IsPlaying to false.
type JoinMsg struct {
	PlayerID  string `json:"playerId,omitempty"`
	IsPlaying bool   `json:"isPlaying"`
	RoomID    string `json:"roomId,omitempty"`
	// AdminToken unlocks start, pause, resume and fill_bots.
	AdminToken string `json:"adminToken,omitempty"`
}

// ActionMsg is the latest input of a player. It replaces the previous one.
type ActionMsg = game.Actions

// --- Server → Client Messages ---

// WelcomeMsg is sent to a client after joining.
type WelcomeMsg struct {
	PlayerID string      `json:"playerId"`
	RoomID   string      `json:"roomId"`
	Config   game.Config `json:"config"`
}

// StateMsg carries a full snapshot; it is used for both state and gameover.
type StateMsg struct {
	State game.Snapshot `json:"state"`
}

// ErrorMsg notifies a client of an error.
type ErrorMsg struct {
	Message string `json:"message"`
}

// Marshal builds the JSON envelope of a message.
func Marshal(msgType MsgType, payload interface{}) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = json.RawMessage(payloadBytes)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

// Unmarshal parses a JSON envelope.
func Unmarshal(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Encode serializes a message and writes it to the writer.
// Format: [4-byte big-endian length][JSON body]
func Encode(w io.Writer, msgType MsgType, payload interface{}) error {
	body, err := Marshal(msgType, payload)
	if err != nil {
		return err
	}

	// Header and body go out in a single write.
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Decode reads a length-prefixed JSON message from the reader.
func Decode(r io.Reader) (*Envelope, error) {
	// Read 4-byte length header
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Unmarshal(body)
}

// DecodePayload unmarshals the payload from an envelope into the target struct.
func DecodePayload(env *Envelope, target interface{}) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", env.Type)
	}
	return json.Unmarshal(env.Payload, target)
}
