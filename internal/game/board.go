package game

import (
	"math/rand"
)

// BoardConfig parameterises GenerateDescriptor.
type BoardConfig struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	BreakableDensity float64 `json:"breakable_density"` // 0.0 to 1.0
}

// DefaultBoardConfig matches the dimensions of the stock arena.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{Width: 15, Height: 13, BreakableDensity: 0.4}
}

// GenerateDescriptor builds a classic Bomberman layout.
//
// Layout rules:
//   - Border is all Wall
//   - Wall at every position where both X and Y are even
//   - Random Breakable fill at the given density
//   - Player spawn corners (and their adjacent tiles) are kept clear
func GenerateDescriptor(config BoardConfig, rng *rand.Rand) *MapDescriptor {
	tiles := make([][]Terrain, config.Height)
	for y := 0; y < config.Height; y++ {
		tiles[y] = make([]Terrain, config.Width)
		for x := 0; x < config.Width; x++ {
			switch {
			case x == 0 || y == 0 || x == config.Width-1 || y == config.Height-1:
				tiles[y][x] = Wall
			case x%2 == 0 && y%2 == 0:
				tiles[y][x] = Wall
			default:
				tiles[y][x] = Walkable
			}
		}
	}

	spawns := SpawnPositions(config.Width, config.Height)
	safeSet := makeSafeSet(spawns)

	for y := 1; y < config.Height-1; y++ {
		for x := 1; x < config.Width-1; x++ {
			if tiles[y][x] != Walkable || safeSet[Position{X: x, Y: y}] {
				continue
			}
			if rng.Float64() < config.BreakableDensity {
				tiles[y][x] = Breakable
			}
		}
	}

	return &MapDescriptor{
		Height:         config.Height,
		Width:          config.Width,
		Tiles:          tiles,
		SpawnPositions: spawns,
	}
}

// SpawnPositions returns the corner spawns of a walled board.
func SpawnPositions(width, height int) []Position {
	return []Position{
		{X: 1, Y: 1},                  // Top-left
		{X: width - 2, Y: 1},          // Top-right
		{X: 1, Y: height - 2},         // Bottom-left
		{X: width - 2, Y: height - 2}, // Bottom-right
	}
}

// makeSafeSet returns the positions that must remain clear around spawns.
func makeSafeSet(spawns []Position) map[Position]bool {
	safe := make(map[Position]bool)
	for _, sp := range spawns {
		safe[sp] = true
		safe[Position{X: sp.X + 1, Y: sp.Y}] = true
		safe[Position{X: sp.X, Y: sp.Y + 1}] = true
		safe[Position{X: sp.X - 1, Y: sp.Y}] = true
		safe[Position{X: sp.X, Y: sp.Y - 1}] = true
	}
	return safe
}
