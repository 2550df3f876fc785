package game

import (
	"fmt"
	"time"
)

// Tile is one cell of the map. Row and Col are its identity and are kept in
// sync by the Map.
type Tile struct {
	Row           int       `json:"row"`
	Col           int       `json:"col"`
	Terrain       Terrain   `json:"terrain"`
	Bombs         []BombID  `json:"bombs"`
	OnFire        bool      `json:"on_fire"`
	FireExpiresAt time.Time `json:"fire_expires_at"`
	FiredBy       PlayerID  `json:"fired_by,omitempty"` // owner of the bomb that lit the fire
	Collectible   *Upgrade  `json:"collectible"`
}

// HasBomb reports whether the given bomb sits on the tile.
func (t *Tile) HasBomb(id BombID) bool {
	for _, b := range t.Bombs {
		if b == id {
			return true
		}
	}
	return false
}

func (t *Tile) removeBomb(id BombID) {
	kept := t.Bombs[:0]
	for _, b := range t.Bombs {
		if b != id {
			kept = append(kept, b)
		}
	}
	t.Bombs = kept
}

func (t Tile) clone() Tile {
	c := t
	c.Bombs = append([]BombID(nil), t.Bombs...)
	if t.Collectible != nil {
		u := *t.Collectible
		c.Collectible = &u
	}
	return c
}

// Map is the rectangular tile lattice of a game plus its ordered spawn list.
// Dimensions never change after construction.
//
// Lookups outside the lattice return nil, which is never a valid tile, so
// callers can branch on it once.
type Map struct {
	width  int
	height int
	tiles  [][]Tile
	spawns []Position
}

// NewBlankMap builds a fully walkable map with one spawn in each corner.
func NewBlankMap(width, height int) *Map {
	m := &Map{}
	m.Init(width, height)
	return m
}

// NewMapFromDescriptor builds a map from a descriptor.
func NewMapFromDescriptor(desc *MapDescriptor) (*Map, error) {
	m := &Map{}
	if err := m.InitFromDescriptor(desc); err != nil {
		return nil, err
	}
	return m, nil
}

// Init resets the map to a blank walkable state with the 4 corner spawns.
func (m *Map) Init(width, height int) {
	m.width = width
	m.height = height
	m.tiles = make([][]Tile, height)
	for row := 0; row < height; row++ {
		m.tiles[row] = make([]Tile, width)
		for col := 0; col < width; col++ {
			m.tiles[row][col] = Tile{Row: row, Col: col, Terrain: Walkable}
		}
	}
	m.spawns = []Position{
		{X: 0, Y: 0},                  // Top-left
		{X: width - 1, Y: 0},          // Top-right
		{X: 0, Y: height - 1},         // Bottom-left
		{X: width - 1, Y: height - 1}, // Bottom-right
	}
}

// InitFromDescriptor resets the map to match the descriptor.
func (m *Map) InitFromDescriptor(desc *MapDescriptor) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("init map: %w", err)
	}

	m.width = desc.Width
	m.height = desc.Height
	m.tiles = make([][]Tile, desc.Height)
	for row := 0; row < desc.Height; row++ {
		m.tiles[row] = make([]Tile, desc.Width)
		for col := 0; col < desc.Width; col++ {
			m.tiles[row][col] = Tile{Row: row, Col: col, Terrain: desc.Tiles[row][col]}
		}
	}
	m.spawns = append([]Position(nil), desc.SpawnPositions...)
	return nil
}

// Width returns the number of columns.
func (m *Map) Width() int { return m.width }

// Height returns the number of rows.
func (m *Map) Height() int { return m.height }

// InBounds reports whether (row, col) lies on the map.
func (m *Map) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < m.height && col < m.width
}

// Get returns the tile at (row, col), or nil when out of bounds.
func (m *Map) Get(row, col int) *Tile {
	if !m.InBounds(row, col) {
		return nil
	}
	return &m.tiles[row][col]
}

// At is Get for a Position.
func (m *Map) At(p Position) *Tile {
	return m.Get(p.Y, p.X)
}

// Set replaces the tile at (row, col). It reports false and does nothing
// when the coordinates are out of bounds.
func (m *Map) Set(row, col int, t Tile) bool {
	if !m.InBounds(row, col) {
		return false
	}
	t.Row, t.Col = row, col
	m.tiles[row][col] = t
	return true
}

// Spawns returns a copy of the spawn list, in join order.
func (m *Map) Spawns() []Position {
	return append([]Position(nil), m.spawns...)
}

// TilesInRectangle returns the in-bound tiles covered by the inclusive
// rectangle [top, bottom] x [left, right].
func (m *Map) TilesInRectangle(top, left, bottom, right int) []*Tile {
	if top > bottom || left > right {
		return nil
	}
	top, left = max(top, 0), max(left, 0)
	bottom, right = min(bottom, m.height-1), min(right, m.width-1)

	var out []*Tile
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			out = append(out, &m.tiles[row][col])
		}
	}
	return out
}

// FootprintTiles returns the tiles overlapped by a w x h footprint whose
// top-left corner is at p.
func (m *Map) FootprintTiles(p Position, w, h int) []*Tile {
	return m.TilesInRectangle(p.Y, p.X, p.Y+h-1, p.X+w-1)
}

// Clone returns a deep copy, used for snapshots.
func (m *Map) Clone() *Map {
	c := &Map{
		width:  m.width,
		height: m.height,
		tiles:  make([][]Tile, m.height),
		spawns: m.Spawns(),
	}
	for row := range m.tiles {
		c.tiles[row] = make([]Tile, m.width)
		for col := range m.tiles[row] {
			c.tiles[row][col] = m.tiles[row][col].clone()
		}
	}
	return c
}

// Tiles exposes the rows of the map. Callers must treat them as read-only.
func (m *Map) Tiles() [][]Tile {
	return m.tiles
}
