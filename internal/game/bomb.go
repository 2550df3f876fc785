package game

import (
	"math/rand"
	"time"
)

// TileChange records the state of one tile before and after an explosion.
type TileChange struct {
	Row    int  `json:"row"`
	Col    int  `json:"col"`
	Before Tile `json:"before"`
	After  Tile `json:"after"`
}

// Propagator computes the effect of a bomb on the map.
type Propagator struct {
	DropRate float64 // probability a destroyed breakable leaves an upgrade
	Rand     *rand.Rand
}

// ImpactOf returns the tile changes produced by b exploding at now. The map
// is not modified. Each of the four rays advances up to b.Power tiles past
// the origin:
//   - a Wall or the map edge stops the ray, untouched
//   - a Breakable becomes a burning Walkable tile, may drop an upgrade and
//     stops the ray
//   - a Walkable tile catches fire, loses its collectible and the ray goes on
//
// The origin is listed last: it burns and loses the exploding bomb.
func (p Propagator) ImpactOf(m *Map, b *Bomb, now time.Time) []TileChange {
	expires := now.Add(b.Blast)
	ignite := func(t Tile) Tile {
		t.OnFire = true
		t.FireExpiresAt = expires
		t.FiredBy = b.OwnerID
		return t
	}

	var changes []TileChange
	for _, d := range Directions {
		for step := 1; step <= b.Power; step++ {
			pos := Position{X: b.Pos.X + d.X*step, Y: b.Pos.Y + d.Y*step}
			tile := m.At(pos)
			if tile == nil || tile.Terrain == Wall {
				break
			}

			before := tile.clone()
			after := ignite(tile.clone())

			if tile.Terrain == Breakable {
				after.Terrain = Walkable
				after.Collectible = p.roll(tile.Row, tile.Col)
				changes = append(changes, TileChange{Row: tile.Row, Col: tile.Col, Before: before, After: after})
				break
			}

			after.Collectible = nil
			changes = append(changes, TileChange{Row: tile.Row, Col: tile.Col, Before: before, After: after})
		}
	}

	if origin := m.At(b.Pos); origin != nil {
		before := origin.clone()
		after := ignite(origin.clone())
		after.removeBomb(b.ID)
		after.Collectible = nil
		changes = append(changes, TileChange{Row: origin.Row, Col: origin.Col, Before: before, After: after})
	}
	return changes
}

func (p Propagator) roll(row, col int) *Upgrade {
	if p.Rand == nil || p.DropRate <= 0 {
		return nil
	}
	return rollUpgrade(p.Rand, p.DropRate, row, col)
}

// plantBomb puts a bomb under the player's top-left tile. It reports false
// when the player already has MaxBombs bombs on the map.
// MUST be called while g.mu is held.
func (g *Game) plantBomb(p *Player, now time.Time) bool {
	if !p.Alive || len(p.ActiveBombs) >= p.MaxBombs {
		return false
	}
	tile := g.state.Map.At(p.Pos)
	if tile == nil {
		return false
	}

	g.nextBombID++
	bomb := &Bomb{
		ID:        g.nextBombID,
		OwnerID:   p.ID,
		PlantedAt: now,
		Fuse:      g.cfg.FuseDuration,
		Blast:     g.cfg.BlastDuration,
		Power:     p.BombPower,
		Pos:       p.Pos,
	}

	g.state.Bombs[bomb.ID] = bomb
	tile.Bombs = append(tile.Bombs, bomb.ID)
	p.ActiveBombs = append(p.ActiveBombs, bomb.ID)
	return true
}

// tickBombs detonates every bomb whose fuse ran out, then any bomb caught by
// the resulting fire, all within the same tick.
// MUST be called while g.mu is held.
func (g *Game) tickBombs(now time.Time) {
	var queue []*Bomb
	queued := make(map[BombID]bool)
	for _, b := range g.state.bombsByID() {
		if !b.ExplodesAt().After(now) {
			queue = append(queue, b)
			queued[b.ID] = true
		}
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if _, ok := g.state.Bombs[b.ID]; !ok {
			continue
		}

		for _, c := range g.detonate(b, now) {
			for _, id := range c.After.Bombs {
				other, ok := g.state.Bombs[id]
				if !ok || queued[id] {
					continue
				}
				queue = append(queue, other)
				queued[id] = true
			}
		}
	}
}

// detonate applies the impact of b to the state and releases the bomb.
// MUST be called while g.mu is held.
func (g *Game) detonate(b *Bomb, now time.Time) []TileChange {
	changes := g.propagator.ImpactOf(g.state.Map, b, now)

	for _, c := range changes {
		switch {
		case c.Before.Collectible == nil && c.After.Collectible != nil:
			g.state.Collectibles = append(g.state.Collectibles, *c.After.Collectible)
		case c.Before.Collectible != nil && c.After.Collectible == nil:
			g.removeCollectible(c.Row, c.Col)
		}
		g.state.Map.Set(c.Row, c.Col, c.After)
	}

	if owner, ok := g.state.Players[b.OwnerID]; ok {
		owner.ActiveBombs = removeBombID(owner.ActiveBombs, b.ID)
	}
	delete(g.state.Bombs, b.ID)
	return changes
}

// removeCollectible drops the collectible listed at (row, col).
func (g *Game) removeCollectible(row, col int) {
	kept := g.state.Collectibles[:0]
	for _, u := range g.state.Collectibles {
		if u.Row != row || u.Col != col {
			kept = append(kept, u)
		}
	}
	g.state.Collectibles = kept
}

func removeBombID(ids []BombID, id BombID) []BombID {
	out := make([]BombID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
