package room

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/amalg/dci-bomberman/internal/balancer"
	"github.com/amalg/dci-bomberman/internal/bot"
	"github.com/amalg/dci-bomberman/internal/game"
)

var (
	ErrRoomClosed   = errors.New("room is closed")
	ErrRoomFull     = errors.New("room is full")
	ErrGameStarted  = errors.New("game already started")
	ErrRoomNotFound = errors.New("room not found")
)

// ResultSink receives the outcome of every finished game.
type ResultSink interface {
	RecordGame(ctx context.Context, r game.Result) error
}

// Options configures the rooms of a Manager.
type Options struct {
	Game        game.Config
	Map         func() *game.MapDescriptor // nil uses game.DefaultDescriptor
	Sinks       []ResultSink
	Grace       time.Duration // delay between game over and closing the room
	BotInterval time.Duration
	Logger      *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Game.MaxPlayers == 0 {
		o.Game = game.DefaultConfig()
	}
	if o.Map == nil {
		o.Map = game.DefaultDescriptor
	}
	if o.Grace == 0 {
		o.Grace = 2 * time.Second
	}
	if o.BotInterval == 0 {
		o.BotInterval = bot.DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return o
}

// Room binds one Game to its connections. It applies the join policy, runs
// the engine and fans snapshots out to subscribers.
type Room struct {
	id     string
	game   *game.Game
	engine *game.Engine
	opts   Options
	logger *log.Logger

	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	onClose func(*Room)

	botCtx    context.Context
	stopBots  context.CancelFunc
	closeOnce sync.Once
	finished  chan struct{} // closed once the result is recorded
}

// NewRoom builds a room and starts its engine. Ticks are no-ops until the
// game starts.
func NewRoom(id string, opts Options) (*Room, error) {
	opts = opts.withDefaults()
	g, err := game.NewGame(id, opts.Game, opts.Map())
	if err != nil {
		return nil, fmt.Errorf("new room: %w", err)
	}

	botCtx, stopBots := context.WithCancel(context.Background())
	r := &Room{
		id:       id,
		game:     g,
		engine:   game.NewEngine(g, opts.Game.TickRate),
		opts:     opts,
		logger:   log.New(opts.Logger.Writer(), fmt.Sprintf("[ROOM %s] ", shortID(id)), opts.Logger.Flags()),
		subs:     make(map[*Subscription]struct{}),
		botCtx:   botCtx,
		stopBots: stopBots,
		finished: make(chan struct{}),
	}

	g.OnStateChanged(r.broadcast)
	g.OnGameOver(func(s game.Snapshot) { go r.finish(s) })
	go r.engine.Run()
	return r, nil
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// Game exposes the simulation.
func (r *Room) Game() *game.Game { return r.game }

// Join attaches a connection. Players take a slot in the game; viewers only
// watch. New players are refused once the game started, known ones may
// reconnect. The game starts as soon as the last slot is taken.
func (r *Room) Join(playerID string, playing bool) (*Subscription, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRoomClosed
	}
	r.mu.Unlock()

	if playing {
		if r.game.HasStarted() && !r.game.HasPlayer(playerID) {
			return nil, ErrGameStarted
		}
		if !r.game.JoinGame(playerID) {
			return nil, ErrRoomFull
		}
	}

	sub := newSubscription(playerID, playing)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRoomClosed
	}
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	r.logger.Printf("%s joined (playing=%v)", playerID, playing)
	sub.deliver(r.game.Snapshot())

	if playing && r.game.IsGameFull() {
		r.Start()
	}
	return sub, nil
}

// Leave detaches a connection. A player whose last connection left is marked
// disconnected. A room nobody is connected to closes.
func (r *Room) Leave(sub *Subscription) {
	r.mu.Lock()
	if _, ok := r.subs[sub]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.subs, sub)
	remaining := len(r.subs)
	stillConnected := false
	for other := range r.subs {
		if other.Playing && other.PlayerID == sub.PlayerID {
			stillConnected = true
			break
		}
	}
	r.mu.Unlock()
	sub.close()

	if sub.Playing && !stillConnected {
		r.game.LeaveGame(sub.PlayerID)
	}
	r.logger.Printf("%s left", sub.PlayerID)

	if remaining == 0 {
		r.Close()
	}
}

// Input forwards the latest actions of a player.
func (r *Room) Input(playerID string, a game.Actions) {
	r.game.UpdateActionsOfPlayer(playerID, a)
}

// Start begins the game.
func (r *Room) Start() {
	if r.game.HasStarted() {
		return
	}
	r.game.StartGame()
	r.logger.Printf("Game started")
}

// Pause freezes the game.
func (r *Room) Pause() { r.game.PauseGame() }

// Resume unfreezes the game.
func (r *Room) Resume() { r.game.ResumeGame() }

// FillWithBots takes every free slot with an in-process bot, which starts the
// game. It returns the ids of the bots added.
func (r *Room) FillWithBots() []string {
	var ids []string
	for !r.game.IsGameFull() {
		id := bot.NewID()
		if !r.game.JoinGame(id) {
			break
		}
		ids = append(ids, id)

		b := bot.New(id, func(a game.Actions) error {
			r.Input(id, a)
			return nil
		}, bot.WithInterval(r.opts.BotInterval))
		go func() { _ = b.Run(r.botCtx) }()
	}
	if len(ids) > 0 {
		r.logger.Printf("Added %d bots", len(ids))
	}
	if r.game.IsGameFull() {
		r.Start()
	}
	return ids
}

// Info summarises the room for the load balancer.
func (r *Room) Info() balancer.GameInfo {
	snap := r.game.Snapshot()
	info := balancer.GameInfo{ID: r.id, Players: []string{}}
	for _, p := range snap.PlayersInJoinOrder() {
		if p.Connected {
			info.Players = append(info.Players, p.ID)
		}
	}

	r.mu.RLock()
	for sub := range r.subs {
		if !sub.Playing {
			info.Viewers++
		}
	}
	r.mu.RUnlock()
	return info
}

// Joinable reports whether a new player could take a slot.
func (r *Room) Joinable() bool {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return false
	}
	return !r.game.HasStarted() && !r.game.IsGameFull()
}

// Closed reports whether Close was called.
func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close stops the engine and bots and ends every subscription. It is safe to
// call more than once.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		subs := r.subs
		r.subs = make(map[*Subscription]struct{})
		onClose := r.onClose
		r.mu.Unlock()

		r.engine.Stop()
		r.game.Close()
		r.stopBots()
		for sub := range subs {
			sub.close()
		}
		r.logger.Printf("Closed")
		if onClose != nil {
			onClose(r)
		}
	})
}

// Finished is closed once the result of the game has been recorded.
func (r *Room) Finished() <-chan struct{} { return r.finished }

func (r *Room) broadcast(s game.Snapshot) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sub := range r.subs {
		sub.deliver(s)
	}
}

// finish reports the result, tells subscribers and closes the room after
// the grace period.
func (r *Room) finish(s game.Snapshot) {
	defer close(r.finished)

	if s.Winner != "" {
		r.logger.Printf("Game over, winner %s", s.Winner)
	} else {
		r.logger.Printf("Game over, draw")
	}

	r.mu.RLock()
	for sub := range r.subs {
		sub.finish(s)
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	result := s.Result()
	for _, sink := range r.opts.Sinks {
		if err := sink.RecordGame(ctx, result); err != nil {
			r.logger.Printf("Record result: %v", err)
		}
	}
	cancel()

	time.AfterFunc(r.opts.Grace, r.Close)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
