package game

import (
	"encoding/json"
	"sort"
	"time"
)

// State is the aggregate root of one game. Only Game mutates it.
type State struct {
	GameID         string
	Map            *Map
	Players        map[PlayerID]*Player
	Bombs          map[BombID]*Bomb
	Collectibles   []Upgrade
	Paused         bool
	HasStarted     bool
	IsOver         bool
	Time           time.Time
	StartedAt      time.Time // time of the first simulated tick
	Winner         PlayerID  // empty until a single player remains
	MaxPlayerCount int
}

// Running reports whether ticks advance the simulation.
func (s *State) Running() bool {
	return s.HasStarted && !s.Paused && !s.IsOver
}

// playersInJoinOrder returns the players sorted by join order so that every
// tick visits them deterministically.
func (s *State) playersInJoinOrder() []*Player {
	players := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinOrder < players[j].JoinOrder
	})
	return players
}

// bombsByID returns the bombs sorted by id.
func (s *State) bombsByID() []*Bomb {
	bombs := make([]*Bomb, 0, len(s.Bombs))
	for _, b := range s.Bombs {
		bombs = append(bombs, b)
	}
	sort.Slice(bombs, func(i, j int) bool { return bombs[i].ID < bombs[j].ID })
	return bombs
}

// remaining returns the players still in play: alive and connected.
func (s *State) remaining() []*Player {
	var out []*Player
	for _, p := range s.playersInJoinOrder() {
		if p.Alive && p.Connected {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot is an immutable deep copy of a State, safe to serialize and hand
// to other goroutines.
type Snapshot struct {
	GameID         string              `json:"gameId"`
	Map            *Map                `json:"map"`
	Players        map[PlayerID]Player `json:"players"`
	Bombs          map[BombID]Bomb     `json:"bombs"`
	Collectibles   []Upgrade           `json:"collectibles"`
	Paused         bool                `json:"paused"`
	IsOver         bool                `json:"isOver"`
	HasStarted     bool                `json:"hasStarted"`
	Time           time.Time           `json:"time"`
	StartedAt      time.Time           `json:"startedAt"`
	Winner         PlayerID            `json:"winner"`
	MaxPlayerCount int                 `json:"maxPlayerCount"`
	// Seq grows with every change of the game; a higher Seq is newer.
	Seq uint64 `json:"seq"`
}

// PlayersInJoinOrder returns the snapshot players sorted by join order.
func (s Snapshot) PlayersInJoinOrder() []Player {
	players := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinOrder < players[j].JoinOrder
	})
	return players
}

func (s *State) snapshot() Snapshot {
	players := make(map[PlayerID]Player, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		cp.ActiveBombs = append([]BombID(nil), p.ActiveBombs...)
		players[id] = cp
	}

	bombs := make(map[BombID]Bomb, len(s.Bombs))
	for id, b := range s.Bombs {
		bombs[id] = *b
	}

	return Snapshot{
		GameID:         s.GameID,
		Map:            s.Map.Clone(),
		Players:        players,
		Bombs:          bombs,
		Collectibles:   append([]Upgrade(nil), s.Collectibles...),
		Paused:         s.Paused,
		IsOver:         s.IsOver,
		HasStarted:     s.HasStarted,
		Time:           s.Time,
		StartedAt:      s.StartedAt,
		Winner:         s.Winner,
		MaxPlayerCount: s.MaxPlayerCount,
	}
}

type mapJSON struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Tiles  [][]Tile   `json:"tiles"`
	Spawns []Position `json:"spawns"`
}

// MarshalJSON encodes the map with its tiles and spawns.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(mapJSON{
		Width:  m.width,
		Height: m.height,
		Tiles:  m.tiles,
		Spawns: m.spawns,
	})
}

// UnmarshalJSON decodes a map produced by MarshalJSON.
func (m *Map) UnmarshalJSON(b []byte) error {
	var mj mapJSON
	if err := json.Unmarshal(b, &mj); err != nil {
		return err
	}
	m.width, m.height = mj.Width, mj.Height
	m.tiles, m.spawns = mj.Tiles, mj.Spawns
	return nil
}
