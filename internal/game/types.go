package game

import (
	"time"
)

// Terrain is the static type of a map tile.
type Terrain int

const (
	Walkable  Terrain = iota
	Wall              // Indestructible
	Breakable         // Destroyed by explosions, may drop an upgrade
)

func (t Terrain) String() string {
	switch t {
	case Walkable:
		return "WALKABLE"
	case Wall:
		return "WALL"
	case Breakable:
		return "BREAKABLE"
	default:
		return "UNKNOWN"
	}
}

// PlayerID identifies a player across reconnections.
type PlayerID = string

// BombID is a monotonic bomb identifier, unique within a game.
type BombID int64

// Position is a tile coordinate: X is the column, Y is the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Actions is the latest input of a player. Movement flags are expected to be
// mutually exclusive; when several are set, up > down > left > right.
type Actions struct {
	MoveUp    bool `json:"move_up"`
	MoveDown  bool `json:"move_down"`
	MoveLeft  bool `json:"move_left"`
	MoveRight bool `json:"move_right"`
	PlantBomb bool `json:"plant_bomb"`
}

// Player is a participant of the game.
type Player struct {
	ID          PlayerID      `json:"id"`
	JoinOrder   int           `json:"join_order"` // 1-based
	Pos         Position      `json:"pos"`
	Width       int           `json:"width"`  // footprint in tiles
	Height      int           `json:"height"` // footprint in tiles
	Speed       time.Duration `json:"speed"`  // minimum delay between two moves
	MaxBombs    int           `json:"max_bombs"`
	ActiveBombs []BombID      `json:"active_bombs"`
	BombPower   int           `json:"bomb_power"`
	Alive       bool          `json:"alive"`
	Connected   bool          `json:"connected"`
	KilledBy    PlayerID      `json:"killed_by,omitempty"`
	Kills       int           `json:"kills"`
	Actions     Actions       `json:"actions"`
	LastMoveAt  time.Time     `json:"last_move_at"`
}

// Bomb is a planted bomb waiting for its fuse to burn.
type Bomb struct {
	ID        BombID        `json:"id"`
	OwnerID   PlayerID      `json:"owner_id"`
	PlantedAt time.Time     `json:"planted_at"`
	Fuse      time.Duration `json:"fuse"`
	Blast     time.Duration `json:"blast"`
	Power     int           `json:"power"`
	Pos       Position      `json:"pos"`
}

// ExplodesAt returns the moment the fuse runs out.
func (b *Bomb) ExplodesAt() time.Time {
	return b.PlantedAt.Add(b.Fuse)
}

// UpgradeKind tags the effect of a collectible.
type UpgradeKind int

const (
	PowerUp UpgradeKind = iota // +1 blast power
	BombUp                     // +1 simultaneous bomb
	SpeedUp                    // shorter delay between moves
)

func (k UpgradeKind) String() string {
	switch k {
	case PowerUp:
		return "POWER-UP"
	case BombUp:
		return "BOMB-UP"
	case SpeedUp:
		return "SPEED-UP"
	default:
		return "UNKNOWN"
	}
}

// Upgrade is a collectible lying on a tile.
type Upgrade struct {
	Kind UpgradeKind `json:"kind"`
	Row  int         `json:"row"`
	Col  int         `json:"col"`
}

// Config holds the tunable parameters of one game.
type Config struct {
	MaxPlayers      int           `json:"max_players"`
	TickRate        int           `json:"tick_rate"` // Ticks per second
	FuseDuration    time.Duration `json:"fuse_duration"`
	BlastDuration   time.Duration `json:"blast_duration"`
	UpgradeDropRate float64       `json:"upgrade_drop_rate"` // 0.0 to 1.0

	// Starting values of every player.
	PlayerWidth  int           `json:"player_width"`
	PlayerHeight int           `json:"player_height"`
	MoveInterval time.Duration `json:"move_interval"`
	MaxBombs     int           `json:"max_bombs"`
	BombPower    int           `json:"bomb_power"`

	// SpeedUp lowers MoveInterval by SpeedStep, never below MinMoveInterval.
	SpeedStep       time.Duration `json:"speed_step"`
	MinMoveInterval time.Duration `json:"min_move_interval"`

	Seed int64 `json:"seed"` // upgrade rolls; 0 picks a time based seed
}

// DefaultConfig returns a sensible default game configuration.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:      4,
		TickRate:        30,
		FuseDuration:    2 * time.Second,
		BlastDuration:   1 * time.Second,
		UpgradeDropRate: 0.2,
		PlayerWidth:     1,
		PlayerHeight:    1,
		MoveInterval:    200 * time.Millisecond,
		MaxBombs:        1,
		BombPower:       2,
		SpeedStep:       25 * time.Millisecond,
		MinMoveInterval: 75 * time.Millisecond,
	}
}
