package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Map construction errors. They are configuration errors: a room cannot be
// built from a map that fails them.
var (
	ErrNilDescriptor       = errors.New("map descriptor is nil")
	ErrMalformedDescriptor = errors.New("map descriptor is malformed")
	ErrTooFewSpawns        = errors.New("map has fewer spawns than players")
	ErrFootprintDoesNotFit = errors.New("player footprint does not fit at spawn")
)

// MapDescriptor is the construction-time description of a map.
type MapDescriptor struct {
	Height         int         `json:"height"`
	Width          int         `json:"width"`
	Tiles          [][]Terrain `json:"tiles"`
	SpawnPositions []Position  `json:"spawnPositions"`
}

// Validate checks that the descriptor describes a well formed rectangle
// whose spawns are on walkable tiles.
func (d *MapDescriptor) Validate() error {
	if d == nil {
		return ErrNilDescriptor
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrMalformedDescriptor, d.Width, d.Height)
	}
	if len(d.Tiles) != d.Height {
		return fmt.Errorf("%w: %d rows, want %d", ErrMalformedDescriptor, len(d.Tiles), d.Height)
	}
	for row, tiles := range d.Tiles {
		if len(tiles) != d.Width {
			return fmt.Errorf("%w: row %d has %d tiles, want %d", ErrMalformedDescriptor, row, len(tiles), d.Width)
		}
		for col, t := range tiles {
			if t != Walkable && t != Wall && t != Breakable {
				return fmt.Errorf("%w: invalid terrain %d at (%d,%d)", ErrMalformedDescriptor, t, row, col)
			}
		}
	}
	for _, sp := range d.SpawnPositions {
		if sp.X < 0 || sp.Y < 0 || sp.X >= d.Width || sp.Y >= d.Height {
			return fmt.Errorf("%w: spawn (%d,%d) out of bounds", ErrMalformedDescriptor, sp.X, sp.Y)
		}
		if d.Tiles[sp.Y][sp.X] != Walkable {
			return fmt.Errorf("%w: spawn (%d,%d) is not walkable", ErrMalformedDescriptor, sp.X, sp.Y)
		}
	}
	return nil
}

// LoadDescriptor reads a JSON map descriptor from disk.
func LoadDescriptor(path string) (*MapDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	var d MapDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// MarshalText encodes terrain with the names used by map files.
func (t Terrain) MarshalText() ([]byte, error) {
	switch t {
	case Walkable, Wall, Breakable:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("%w: invalid terrain %d", ErrMalformedDescriptor, int(t))
}

// UnmarshalText decodes WALKABLE, WALL and BREAKABLE.
func (t *Terrain) UnmarshalText(b []byte) error {
	switch string(b) {
	case "WALKABLE":
		*t = Walkable
	case "WALL":
		*t = Wall
	case "BREAKABLE":
		*t = Breakable
	default:
		return fmt.Errorf("%w: unknown terrain %q", ErrMalformedDescriptor, string(b))
	}
	return nil
}

// DefaultDescriptor returns the stock 15x15 arena: free corners for the four
// spawns, a pillar on every odd row and column, breakables everywhere else.
func DefaultDescriptor() *MapDescriptor {
	const size = 15
	tiles := make([][]Terrain, size)
	for row := 0; row < size; row++ {
		tiles[row] = make([]Terrain, size)
		for col := 0; col < size; col++ {
			switch {
			case row%2 == 1 && col%2 == 1:
				tiles[row][col] = Wall
			case inCornerPocket(row, col, size):
				tiles[row][col] = Walkable
			default:
				tiles[row][col] = Breakable
			}
		}
	}
	return &MapDescriptor{
		Height: size,
		Width:  size,
		Tiles:  tiles,
		SpawnPositions: []Position{
			{X: 0, Y: 0},
			{X: size - 1, Y: 0},
			{X: 0, Y: size - 1},
			{X: size - 1, Y: size - 1},
		},
	}
}

// inCornerPocket reports whether (row, col) is one of the three free tiles of
// a corner: the corner itself and its two neighbours along the border.
func inCornerPocket(row, col, size int) bool {
	last := size - 1
	nearRow := row <= 1 || row >= last-1
	nearCol := col <= 1 || col >= last-1
	onRowEdge := row == 0 || row == last
	onColEdge := col == 0 || col == last
	return nearRow && nearCol && (onRowEdge || onColEdge)
}
