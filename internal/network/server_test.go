package network

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amalg/dci-bomberman/internal/api"
	"github.com/amalg/dci-bomberman/internal/balancer"
	"github.com/amalg/dci-bomberman/internal/game"
	"github.com/amalg/dci-bomberman/internal/room"
	"github.com/amalg/dci-bomberman/internal/token"
)

var testAdmin = token.NewJwtService("test-secret", "bomberman")

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := testAdmin.AdminToken("host", time.Hour)
	require.NoError(t, err)
	return tok
}

func newTestManager(t *testing.T) *room.Manager {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.TickRate = 100
	cfg.Seed = 1
	m := room.NewManager(room.Options{
		Game:        cfg,
		Grace:       10 * time.Millisecond,
		BotInterval: time.Hour,
		Logger:      log.New(io.Discard, "", 0),
	})
	t.Cleanup(m.Close)
	return m
}

func startServer(t *testing.T, rooms *room.Manager) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", rooms, testAdmin, log.New(io.Discard, "", 0))
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func nextState(t *testing.T, c *Client, match func(game.Snapshot) bool) game.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-c.StateChan():
			require.True(t, ok, "connection closed")
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("no matching state")
		}
	}
}

func TestClientJoinAndPlay(t *testing.T) {
	rooms := newTestManager(t)
	s := startServer(t, rooms)

	c, err := NewClient(s.Addr(), JoinMsg{PlayerID: "p1", IsPlaying: true, AdminToken: adminToken(t)})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "p1", c.PlayerID())
	assert.NotEmpty(t, c.RoomID())
	assert.Equal(t, 4, c.Config().MaxPlayers)

	nextState(t, c, func(s game.Snapshot) bool { _, ok := s.Players["p1"]; return ok })

	require.NoError(t, c.SendFillBots())
	snap := nextState(t, c, func(s game.Snapshot) bool { return s.HasStarted })
	assert.Len(t, snap.Players, 4)

	require.NoError(t, c.SendPause())
	nextState(t, c, func(s game.Snapshot) bool { return s.Paused })
	require.NoError(t, c.SendResume())
	nextState(t, c, func(s game.Snapshot) bool { return !s.Paused })

	require.NoError(t, c.SendActions(game.Actions{MoveRight: true}))
	nextState(t, c, func(s game.Snapshot) bool { return s.Players["p1"].Pos.X > 0 })
}

func nextError(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Errors():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no error from server")
		return ""
	}
}

func TestViewerCannotStart(t *testing.T) {
	rooms := newTestManager(t)
	s := startServer(t, rooms)

	viewer, err := NewClient(s.Addr(), JoinMsg{PlayerID: "v1", IsPlaying: false})
	require.NoError(t, err)
	defer viewer.Close()

	player, err := NewClient(s.Addr(), JoinMsg{PlayerID: "p1", IsPlaying: true, RoomID: viewer.RoomID()})
	require.NoError(t, err)
	defer player.Close()

	r, err := rooms.Room(viewer.RoomID())
	require.NoError(t, err)

	require.NoError(t, viewer.SendStart())
	assert.Contains(t, nextError(t, viewer), "requires an admin token")
	assert.False(t, r.Game().HasStarted())

	require.NoError(t, viewer.SendFillBots())
	nextError(t, viewer)
	assert.Len(t, r.Game().Snapshot().Players, 1)
}

func TestPlayerCannotPauseWithoutAdminToken(t *testing.T) {
	rooms := newTestManager(t)
	s := startServer(t, rooms)

	host, err := NewClient(s.Addr(), JoinMsg{PlayerID: "host", IsPlaying: true, AdminToken: adminToken(t)})
	require.NoError(t, err)
	defer host.Close()

	forged, err := token.NewJwtService("other-secret", "bomberman").AdminToken("p2", time.Hour)
	require.NoError(t, err)
	p2, err := NewClient(s.Addr(), JoinMsg{PlayerID: "p2", IsPlaying: true, RoomID: host.RoomID(), AdminToken: forged})
	require.NoError(t, err)
	defer p2.Close()

	r, err := rooms.Room(host.RoomID())
	require.NoError(t, err)

	require.NoError(t, host.SendStart())
	nextState(t, host, func(s game.Snapshot) bool { return s.HasStarted })

	require.NoError(t, p2.SendPause())
	assert.Contains(t, nextError(t, p2), "pause")
	assert.False(t, r.Game().Snapshot().Paused)

	require.NoError(t, host.SendPause())
	nextState(t, host, func(s game.Snapshot) bool { return s.Paused })
}

func TestClientAssignedID(t *testing.T) {
	rooms := newTestManager(t)
	s := startServer(t, rooms)

	c, err := NewClient(s.Addr(), JoinMsg{IsPlaying: false})
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, strings.HasPrefix(c.PlayerID(), "p-"))
}

func TestJoinUnknownRoom(t *testing.T) {
	rooms := newTestManager(t)
	s := startServer(t, rooms)

	_, err := NewClient(s.Addr(), JoinMsg{PlayerID: "p1", IsPlaying: true, RoomID: "missing"})
	assert.ErrorContains(t, err, "room not found")
}

func TestDisconnectClosesEmptyRoom(t *testing.T) {
	rooms := newTestManager(t)
	s := startServer(t, rooms)

	c, err := NewClient(s.Addr(), JoinMsg{PlayerID: "p1", IsPlaying: true})
	require.NoError(t, err)
	c.Close()

	assert.Eventually(t, func() bool { return len(rooms.Rooms()) == 0 },
		time.Second, 5*time.Millisecond, "empty room should close after the only player left")
}

func TestWebSocketSession(t *testing.T) {
	rooms := newTestManager(t)
	router := api.NewRouter(api.Config{
		Mode:        gin.TestMode,
		Controllers: []api.Controller{NewWSHandler(rooms, "ws://game", testAdmin, log.New(io.Discard, "", 0))},
	})
	srv := httptest.NewServer(router.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	join, err := Marshal(MsgJoin, JoinMsg{PlayerID: "w1", IsPlaying: true})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, join))

	read := func() *Envelope {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, body, err := conn.ReadMessage()
		require.NoError(t, err)
		env, err := Unmarshal(body)
		require.NoError(t, err)
		return env
	}

	env := read()
	require.Equal(t, MsgWelcome, env.Type)
	var welcome WelcomeMsg
	require.NoError(t, DecodePayload(env, &welcome))
	assert.Equal(t, "w1", welcome.PlayerID)

	env = read()
	require.Equal(t, MsgState, env.Type)
	var state StateMsg
	require.NoError(t, DecodePayload(env, &state))
	assert.Contains(t, state.State.Players, "w1")
	assert.Equal(t, 15, state.State.Map.Width())

	resp, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info balancer.ServerInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "ws://game", info.URL)
	assert.Equal(t, 1, info.GameCount)
	assert.Equal(t, 1, info.PlayerCount)
}
