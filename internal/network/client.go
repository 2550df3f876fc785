package network

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/amalg/dci-bomberman/internal/game"
)

// Client connects to a game server and provides methods to send actions
// and receive state updates.
type Client struct {
	conn     net.Conn
	playerID string
	roomID   string
	config   game.Config
	stateCh  chan game.Snapshot
	overCh   chan game.Snapshot
	errCh    chan string
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
}

// NewClient connects to addr and joins a room.
func NewClient(addr string, join JoinMsg) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return newClient(conn, join)
}

func newClient(conn net.Conn, join JoinMsg) (*Client, error) {
	c := &Client{
		conn:    conn,
		stateCh: make(chan game.Snapshot, 1),
		overCh:  make(chan game.Snapshot, 1),
		errCh:   make(chan string, 8),
		done:    make(chan struct{}),
	}

	if err := Encode(conn, MsgJoin, join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send join: %w", err)
	}

	env, err := Decode(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}

	if env.Type == MsgError {
		var errMsg ErrorMsg
		_ = DecodePayload(env, &errMsg)
		conn.Close()
		return nil, fmt.Errorf("server error: %s", errMsg.Message)
	}

	if env.Type != MsgWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected welcome, got %s", env.Type)
	}

	var welcome WelcomeMsg
	if err := DecodePayload(env, &welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode welcome: %w", err)
	}

	c.playerID = welcome.PlayerID
	c.roomID = welcome.RoomID
	c.config = welcome.Config

	go c.receiveLoop()

	return c, nil
}

// PlayerID returns the client's player ID.
func (c *Client) PlayerID() string {
	return c.playerID
}

// RoomID returns the room the server placed the client in.
func (c *Client) RoomID() string {
	return c.roomID
}

// Config returns the game configuration received from the server.
func (c *Client) Config() game.Config {
	return c.config
}

// StateChan returns a channel that yields game state updates. It is closed
// when the connection ends.
func (c *Client) StateChan() <-chan game.Snapshot {
	return c.stateCh
}

// GameOver yields the final snapshot of the game.
func (c *Client) GameOver() <-chan game.Snapshot {
	return c.overCh
}

// Errors yields error messages sent by the server.
func (c *Client) Errors() <-chan string {
	return c.errCh
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendActions replaces the player's pending input on the server.
func (c *Client) SendActions(a game.Actions) error {
	return c.send(MsgAction, a)
}

// SendStart requests the server to start the game.
func (c *Client) SendStart() error { return c.send(MsgStart, nil) }

// SendPause requests a pause.
func (c *Client) SendPause() error { return c.send(MsgPause, nil) }

// SendResume requests the game to continue.
func (c *Client) SendResume() error { return c.send(MsgResume, nil) }

// SendFillBots asks the server to fill the free slots with bots.
func (c *Client) SendFillBots() error { return c.send(MsgFillBots, nil) }

func (c *Client) send(msgType MsgType, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Encode(c.conn, msgType, payload)
}

// Close disconnects from the server.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
	c.conn.Close()
}

func (c *Client) receiveLoop() {
	defer close(c.stateCh)
	defer c.Close()

	for {
		env, err := Decode(c.conn)
		if err != nil {
			return
		}

		switch env.Type {
		case MsgState:
			var stateMsg StateMsg
			if err := DecodePayload(env, &stateMsg); err != nil {
				continue
			}
			// Non-blocking send to state channel
			select {
			case c.stateCh <- stateMsg.State:
			default:
				// Drop old state if the consumer is slow, the latest state matters most
				select {
				case <-c.stateCh:
				default:
				}
				c.stateCh <- stateMsg.State
			}
		case MsgGameOver:
			var stateMsg StateMsg
			if err := DecodePayload(env, &stateMsg); err != nil {
				continue
			}
			select {
			case c.overCh <- stateMsg.State:
			default:
			}
		case MsgError:
			var errMsg ErrorMsg
			_ = DecodePayload(env, &errMsg)
			select {
			case c.errCh <- errMsg.Message:
			default:
			}
		}
	}
}
