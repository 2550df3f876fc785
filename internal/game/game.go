package game

import (
	"fmt"
	"slices"
	"sync"
)

// Game owns the state of one room and is its only writer. Commands and ticks
// are serialized by a mutex; observers are called after it is released, with
// a snapshot taken while it was held.
type Game struct {
	mu         sync.Mutex
	state      State
	cfg        Config
	propagator Propagator
	nextBombID BombID
	nextJoin   int
	seq        uint64

	obsMu    sync.Mutex
	obsSeq   int
	onChange map[int]func(Snapshot)
	onOver   map[int]func(Snapshot)
	closed   bool
}

// NewGame builds a game on the map described by desc.
func NewGame(id string, cfg Config, desc *MapDescriptor) (*Game, error) {
	m, err := NewMapFromDescriptor(desc)
	if err != nil {
		return nil, fmt.Errorf("new game %s: %w", id, err)
	}
	if len(m.Spawns()) < cfg.MaxPlayers {
		return nil, fmt.Errorf("new game %s: %w (%d spawns, %d players)",
			id, ErrTooFewSpawns, len(m.Spawns()), cfg.MaxPlayers)
	}
	if err := checkSpawnFootprints(m, cfg); err != nil {
		return nil, fmt.Errorf("new game %s: %w", id, err)
	}

	return &Game{
		state: State{
			GameID:         id,
			Map:            m,
			Players:        make(map[PlayerID]*Player),
			Bombs:          make(map[BombID]*Bomb),
			Collectibles:   make([]Upgrade, 0),
			MaxPlayerCount: cfg.MaxPlayers,
		},
		cfg: cfg,
		propagator: Propagator{
			DropRate: cfg.UpgradeDropRate,
			Rand:     newRand(cfg.Seed),
		},
		onChange: make(map[int]func(Snapshot)),
		onOver:   make(map[int]func(Snapshot)),
	}, nil
}

// checkSpawnFootprints makes sure a player placed on any spawn fits on the
// map and stands on walkable ground only.
func checkSpawnFootprints(m *Map, cfg Config) error {
	w, h := max(cfg.PlayerWidth, 1), max(cfg.PlayerHeight, 1)
	for _, sp := range m.Spawns() {
		if !m.InBounds(sp.Y+h-1, sp.X+w-1) {
			return fmt.Errorf("%w: %dx%d player at spawn (%d,%d) leaves the map",
				ErrFootprintDoesNotFit, w, h, sp.X, sp.Y)
		}
		for _, t := range m.FootprintTiles(sp, w, h) {
			if t.Terrain != Walkable {
				return fmt.Errorf("%w: %dx%d player at spawn (%d,%d) covers a blocked tile",
					ErrFootprintDoesNotFit, w, h, sp.X, sp.Y)
			}
		}
	}
	return nil
}

// ID returns the game id.
func (g *Game) ID() string { return g.state.GameID }

// Config returns the configuration the game was built with.
func (g *Game) Config() Config { return g.cfg }

// JoinGame adds a player, or reconnects one already known. It reports false
// when the game is full.
func (g *Game) JoinGame(id PlayerID) bool {
	var ok, changed bool
	g.update(func() (bool, bool) {
		if p, exists := g.state.Players[id]; exists {
			ok = true
			if !p.Connected {
				p.Connected = true
				changed = true
			}
			return changed, false
		}
		if len(g.state.Players) >= g.state.MaxPlayerCount {
			return false, false
		}

		g.nextJoin++
		g.state.Players[id] = &Player{
			ID:          id,
			JoinOrder:   g.nextJoin,
			Pos:         g.freeSpawn(),
			Width:       max(g.cfg.PlayerWidth, 1),
			Height:      max(g.cfg.PlayerHeight, 1),
			Speed:       g.cfg.MoveInterval,
			MaxBombs:    g.cfg.MaxBombs,
			ActiveBombs: make([]BombID, 0),
			BombPower:   g.cfg.BombPower,
			Alive:       true,
			Connected:   true,
		}
		ok = true
		return true, false
	})
	return ok
}

// freeSpawn returns the first spawn not covered by a live player.
// MUST be called while g.mu is held.
func (g *Game) freeSpawn() Position {
	spawns := g.state.Map.Spawns()
	for _, sp := range spawns {
		taken := false
		for _, p := range g.state.Players {
			if p.Alive && covers(p, sp) {
				taken = true
				break
			}
		}
		if !taken {
			return sp
		}
	}
	return spawns[len(g.state.Players)%len(spawns)]
}

func covers(p *Player, pos Position) bool {
	return pos.X >= p.Pos.X && pos.X < p.Pos.X+p.Width &&
		pos.Y >= p.Pos.Y && pos.Y < p.Pos.Y+p.Height
}

// LeaveGame removes a player from a game that has not started and reports
// true. Once started the player is kept, marked disconnected, and false is
// returned so the player can rejoin.
func (g *Game) LeaveGame(id PlayerID) bool {
	var removed bool
	g.update(func() (bool, bool) {
		p, ok := g.state.Players[id]
		if !ok {
			return false, false
		}
		if !g.state.HasStarted {
			delete(g.state.Players, id)
			removed = true
			return true, false
		}
		if !p.Connected {
			return false, false
		}
		p.Connected = false
		p.Actions = Actions{}
		return true, g.checkWinner()
	})
	return removed
}

// UpdateActionsOfPlayer replaces the pending input of a player. It takes
// effect on the next tick.
func (g *Game) UpdateActionsOfPlayer(id PlayerID, actions Actions) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.state.Players[id]
	if !ok || !p.Alive || !p.Connected {
		return
	}
	p.Actions = actions
}

// StartGame moves a game that has not started to running.
func (g *Game) StartGame() {
	g.update(func() (bool, bool) {
		if g.state.HasStarted {
			return false, false
		}
		g.state.HasStarted = true
		return true, false
	})
}

// PauseGame freezes a running game. No-op otherwise.
func (g *Game) PauseGame() {
	g.update(func() (bool, bool) {
		if !g.state.Running() {
			return false, false
		}
		g.state.Paused = true
		return true, false
	})
}

// ResumeGame unfreezes a paused game. No-op otherwise.
func (g *Game) ResumeGame() {
	g.update(func() (bool, bool) {
		if !g.state.Paused || g.state.IsOver {
			return false, false
		}
		g.state.Paused = false
		return true, false
	})
}

// IsGameFull reports whether every player slot is taken.
func (g *Game) IsGameFull() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.state.Players) >= g.state.MaxPlayerCount
}

// HasPlayer reports whether id is part of the game.
func (g *Game) HasPlayer(id PlayerID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.state.Players[id]
	return ok
}

// HasStarted reports whether StartGame ran.
func (g *Game) HasStarted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.HasStarted
}

// Snapshot returns a deep copy of the current state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

// snapshot copies the state and stamps it with the current sequence number.
// MUST be called while g.mu is held.
func (g *Game) snapshot() Snapshot {
	snap := g.state.snapshot()
	snap.Seq = g.seq
	return snap
}

// OnStateChanged registers fn to receive a snapshot after every change.
// The returned func unsubscribes.
func (g *Game) OnStateChanged(fn func(Snapshot)) (unsubscribe func()) {
	return g.subscribe(g.onChange, fn)
}

// OnGameOver registers fn to receive the final snapshot once the game ends.
func (g *Game) OnGameOver(fn func(Snapshot)) (unsubscribe func()) {
	return g.subscribe(g.onOver, fn)
}

// Close drops every observer. Later changes are not published.
func (g *Game) Close() {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	g.closed = true
	clear(g.onChange)
	clear(g.onOver)
}

func (g *Game) subscribe(set map[int]func(Snapshot), fn func(Snapshot)) func() {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	if g.closed {
		return func() {}
	}
	g.obsSeq++
	key := g.obsSeq
	set[key] = fn
	return func() {
		g.obsMu.Lock()
		defer g.obsMu.Unlock()
		delete(set, key)
	}
}

func (g *Game) observers(set map[int]func(Snapshot)) []func(Snapshot) {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func(Snapshot), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, set[k])
	}
	return fns
}

func (g *Game) hasObservers() bool {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	return len(g.onChange) > 0 || len(g.onOver) > 0
}

// update runs fn under the state lock. fn reports whether the state changed
// and whether the game just ended; observers are then called without the lock.
// Every change bumps the sequence number, so observers racing each other can
// tell which snapshot is newer.
func (g *Game) update(fn func() (changed, over bool)) {
	g.mu.Lock()
	changed, over := fn()
	if !changed && !over {
		g.mu.Unlock()
		return
	}
	g.seq++
	if !g.hasObservers() {
		g.mu.Unlock()
		return
	}
	snap := g.snapshot()
	g.mu.Unlock()

	for _, fn := range g.observers(g.onChange) {
		fn(snap)
	}
	if over {
		for _, fn := range g.observers(g.onOver) {
			fn(snap)
		}
	}
}

// checkWinner ends a started game once at most one player remains in play.
// It reports whether the game ended.
// MUST be called while g.mu is held.
func (g *Game) checkWinner() bool {
	if !g.state.HasStarted || g.state.IsOver {
		return false
	}
	remaining := g.state.remaining()
	switch len(remaining) {
	case 0:
		g.state.IsOver = true
		g.state.Winner = ""
	case 1:
		g.state.IsOver = true
		g.state.Winner = remaining[0].ID
	default:
		return false
	}
	return true
}
