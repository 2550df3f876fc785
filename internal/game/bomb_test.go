package game

import (
	"math/rand"
	"testing"
	"time"
)

func changeAt(changes []TileChange, row, col int) (TileChange, bool) {
	for _, c := range changes {
		if c.Row == row && c.Col == col {
			return c, true
		}
	}
	return TileChange{}, false
}

// addBomb registers a bomb on the state as plantBomb would.
func addBomb(g *Game, owner PlayerID, pos Position, power int, plantedAt time.Time) *Bomb {
	g.nextBombID++
	b := &Bomb{
		ID:        g.nextBombID,
		OwnerID:   owner,
		PlantedAt: plantedAt,
		Fuse:      g.cfg.FuseDuration,
		Blast:     g.cfg.BlastDuration,
		Power:     power,
		Pos:       pos,
	}
	g.state.Bombs[b.ID] = b
	tile := g.state.Map.At(pos)
	tile.Bombs = append(tile.Bombs, b.ID)
	if p, ok := g.state.Players[owner]; ok {
		p.ActiveBombs = append(p.ActiveBombs, b.ID)
	}
	return b
}

func TestImpactOfStopsAtBreakable(t *testing.T) {
	desc := blankDescriptor(15, 15)
	desc.Tiles[2][2] = Breakable
	m, err := NewMapFromDescriptor(desc)
	if err != nil {
		t.Fatal(err)
	}

	b := &Bomb{ID: 1, OwnerID: "p1", Fuse: 2 * time.Second, Blast: time.Second, Power: 2, Pos: Position{X: 1, Y: 2}}
	m.At(b.Pos).Bombs = []BombID{b.ID}
	now := t0.Add(2 * time.Second)

	changes := Propagator{}.ImpactOf(m, b, now)

	origin, ok := changeAt(changes, 2, 1)
	if !ok || !origin.After.OnFire {
		t.Fatal("origin (2,1) should be on fire")
	}
	if origin.After.HasBomb(b.ID) {
		t.Error("origin should no longer hold the bomb")
	}

	broken, ok := changeAt(changes, 2, 2)
	if !ok {
		t.Fatal("(2,2) should be affected")
	}
	if broken.Before.Terrain != Breakable || broken.After.Terrain != Walkable || !broken.After.OnFire {
		t.Errorf("(2,2): expected burning walkable, got %v on fire %v", broken.After.Terrain, broken.After.OnFire)
	}
	if !broken.After.FireExpiresAt.Equal(now.Add(time.Second)) {
		t.Errorf("fire should expire at now+blast, got %v", broken.After.FireExpiresAt)
	}
	if broken.After.FiredBy != "p1" {
		t.Errorf("fire should be credited to p1, got %q", broken.After.FiredBy)
	}

	if _, ok := changeAt(changes, 2, 3); ok {
		t.Error("(2,3) must be untouched: the breakable absorbs the blast")
	}

	// Left ray is cut by the edge after one tile; up and down reach two.
	for _, rc := range [][2]int{{2, 0}, {1, 1}, {0, 1}, {3, 1}, {4, 1}} {
		if _, ok := changeAt(changes, rc[0], rc[1]); !ok {
			t.Errorf("(%d,%d) should be on fire", rc[0], rc[1])
		}
	}
	if _, ok := changeAt(changes, 5, 1); ok {
		t.Error("(5,1) is beyond power 2")
	}
	if len(changes) != 7 {
		t.Errorf("expected 7 changes, got %d", len(changes))
	}

	if m.Get(2, 2).Terrain != Breakable {
		t.Error("ImpactOf must not modify the map")
	}
}

func TestImpactOfStopsAtWall(t *testing.T) {
	desc := blankDescriptor(7, 7)
	desc.Tiles[3][4] = Wall
	m, _ := NewMapFromDescriptor(desc)

	b := &Bomb{ID: 1, Power: 3, Pos: Position{X: 3, Y: 3}}
	changes := Propagator{}.ImpactOf(m, b, t0)

	if _, ok := changeAt(changes, 3, 4); ok {
		t.Error("wall tile must not be affected")
	}
	if _, ok := changeAt(changes, 3, 5); ok {
		t.Error("blast must not pass a wall")
	}
	if _, ok := changeAt(changes, 3, 0); !ok {
		t.Error("left ray should reach (3,0)")
	}
}

func TestImpactOfDropsUpgrade(t *testing.T) {
	desc := blankDescriptor(5, 5)
	desc.Tiles[0][2] = Breakable
	m, _ := NewMapFromDescriptor(desc)

	p := Propagator{DropRate: 1, Rand: rand.New(rand.NewSource(1))}
	changes := p.ImpactOf(m, &Bomb{ID: 1, Power: 1, Pos: Position{X: 1, Y: 0}}, t0)

	c, ok := changeAt(changes, 0, 2)
	if !ok || c.After.Collectible == nil {
		t.Fatal("breakable should drop an upgrade at rate 1")
	}
	if c.After.Collectible.Row != 0 || c.After.Collectible.Col != 2 {
		t.Errorf("upgrade placed at wrong tile: %+v", c.After.Collectible)
	}
}

func TestBombScenario(t *testing.T) {
	desc := blankDescriptor(15, 15)
	desc.Tiles[2][2] = Breakable
	desc.Tiles[2][3] = Breakable
	g := newTestGame(t, desc, "p1", "p2")
	g.StartGame()

	g.state.Players["p1"].Pos = Position{X: 1, Y: 2}
	g.UpdateActionsOfPlayer("p1", Actions{PlantBomb: true})
	g.GameTick(t0)

	if len(g.Snapshot().Bombs) != 1 {
		t.Fatal("bomb should be planted at t0")
	}

	g.GameTick(t0.Add(1999 * time.Millisecond))
	if len(g.Snapshot().Bombs) != 1 {
		t.Fatal("bomb exploded before its fuse ran out")
	}

	g.GameTick(t0.Add(2 * time.Second))
	snap := g.Snapshot()
	if len(snap.Bombs) != 0 {
		t.Fatal("bomb should have exploded at t0+2s")
	}
	if len(snap.Players["p1"].ActiveBombs) != 0 {
		t.Error("bomb should be released from its owner")
	}
	if tile := snap.Map.Get(2, 2); tile.Terrain != Walkable || !tile.OnFire {
		t.Errorf("(2,2): expected burning walkable, got %v", tile.Terrain)
	}
	if tile := snap.Map.Get(2, 1); !tile.OnFire || len(tile.Bombs) != 0 {
		t.Error("(2,1) should burn with no bomb left")
	}
	if tile := snap.Map.Get(2, 3); tile.Terrain != Breakable || tile.OnFire {
		t.Error("(2,3) should be untouched")
	}
	if !snap.Players["p1"].Alive {
		t.Fatal("deaths are checked before bombs explode")
	}

	g.GameTick(t0.Add(2033 * time.Millisecond))
	snap = g.Snapshot()
	p1 := snap.Players["p1"]
	if p1.Alive {
		t.Fatal("p1 should die standing on its own bomb")
	}
	if p1.KilledBy != "p1" || p1.Kills != 0 {
		t.Errorf("self kill should not be credited: killedBy=%q kills=%d", p1.KilledBy, p1.Kills)
	}
	if !snap.IsOver || snap.Winner != "p2" {
		t.Fatalf("expected p2 to win, got over=%v winner=%q", snap.IsOver, snap.Winner)
	}
}

func TestChainExplosionSameTick(t *testing.T) {
	g := newTestGame(t, blankDescriptor(15, 15), "p1", "p2")
	g.StartGame()

	first := addBomb(g, "p1", Position{X: 5, Y: 5}, 2, t0)
	second := addBomb(g, "p2", Position{X: 7, Y: 5}, 2, t0.Add(time.Second))
	lone := addBomb(g, "p2", Position{X: 10, Y: 10}, 1, t0.Add(time.Second))

	g.GameTick(t0.Add(2 * time.Second))

	snap := g.Snapshot()
	if _, ok := snap.Bombs[first.ID]; ok {
		t.Error("due bomb should have exploded")
	}
	if _, ok := snap.Bombs[second.ID]; ok {
		t.Error("bomb caught by the blast should chain in the same tick")
	}
	if _, ok := snap.Bombs[lone.ID]; !ok {
		t.Error("bomb out of reach should still be ticking")
	}
	if !snap.Map.Get(5, 9).OnFire {
		t.Error("chained blast should reach (5,9)")
	}
	if got := snap.Players["p2"].ActiveBombs; len(got) != 1 || got[0] != lone.ID {
		t.Errorf("p2 should only hold the lone bomb, got %v", got)
	}
}

func TestExplosionDestroysCollectible(t *testing.T) {
	g := newTestGame(t, blankDescriptor(15, 15), "p1", "p2")
	g.StartGame()

	u := Upgrade{Kind: BombUp, Row: 5, Col: 6}
	g.state.Map.Get(5, 6).Collectible = &u
	g.state.Collectibles = append(g.state.Collectibles, u, Upgrade{Kind: SpeedUp, Row: 9, Col: 9})
	addBomb(g, "p1", Position{X: 5, Y: 5}, 1, t0)

	g.GameTick(t0.Add(2 * time.Second))

	snap := g.Snapshot()
	if snap.Map.Get(5, 6).Collectible != nil {
		t.Error("blast should destroy the collectible")
	}
	if len(snap.Collectibles) != 1 || snap.Collectibles[0].Row != 9 {
		t.Errorf("expected only the distant collectible left, got %v", snap.Collectibles)
	}
}

func TestExplosionAddsCollectible(t *testing.T) {
	desc := blankDescriptor(15, 15)
	desc.Tiles[5][6] = Breakable
	cfg := testConfig()
	cfg.UpgradeDropRate = 1
	g, err := NewGame("drop", cfg, desc)
	if err != nil {
		t.Fatal(err)
	}
	g.JoinGame("p1")
	g.JoinGame("p2")
	g.StartGame()
	addBomb(g, "p1", Position{X: 5, Y: 5}, 1, t0)

	g.GameTick(t0.Add(2 * time.Second))

	snap := g.Snapshot()
	if len(snap.Collectibles) != 1 {
		t.Fatalf("expected one dropped upgrade, got %v", snap.Collectibles)
	}
	if c := snap.Collectibles[0]; c.Row != 5 || c.Col != 6 {
		t.Errorf("upgrade listed at wrong tile: %+v", c)
	}
	if snap.Map.Get(5, 6).Collectible == nil {
		t.Error("tile should hold the dropped upgrade")
	}
}
