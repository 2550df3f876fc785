package game

import "time"

// GameTick advances the simulation to now. It does nothing unless the game
// is running.
//
// Order: fire expiry, player moves and plants, deaths and pickups, bomb
// detonations. A state-changed notification follows every tick, plus a
// game-over notification on the tick that ends the game.
func (g *Game) GameTick(now time.Time) {
	g.update(func() (bool, bool) {
		if !g.state.Running() {
			return false, false
		}

		g.state.Time = now
		if g.state.StartedAt.IsZero() {
			g.state.StartedAt = now
		}
		g.expireFires(now)

		players := g.state.playersInJoinOrder()
		for _, p := range players {
			if p.Alive {
				g.actPlayer(p, now)
			}
		}

		over := false
		if g.resolveTiles(players) > 0 {
			over = g.checkWinner()
		}

		g.tickBombs(now)
		return true, over
	})
}

// expireFires puts out every fire whose time has passed.
// MUST be called while g.mu is held.
func (g *Game) expireFires(now time.Time) {
	for _, row := range g.state.Map.tiles {
		for i := range row {
			t := &row[i]
			if t.OnFire && t.FireExpiresAt.Before(now) {
				t.OnFire = false
				t.FiredBy = ""
			}
		}
	}
}

// actPlayer applies the pending input of a living player.
// MUST be called while g.mu is held.
func (g *Game) actPlayer(p *Player, now time.Time) {
	if !p.LastMoveAt.Add(p.Speed).After(now) {
		if d, ok := p.Actions.Step(); ok && AttemptMove(g.state.Map, p, p.Pos.Add(d)) {
			p.LastMoveAt = now
		}
	}

	// The flag is consumed by a successful plant only; at the cap it stays
	// pending until a bomb frees up.
	if p.Actions.PlantBomb && g.plantBomb(p, now) {
		p.Actions.PlantBomb = false
	}
}

// resolveTiles kills players standing in fire and hands collectibles to the
// players standing on them. It returns the number of deaths.
// MUST be called while g.mu is held.
func (g *Game) resolveTiles(players []*Player) int {
	deaths := 0
	for _, p := range players {
		if !p.Alive {
			continue
		}

		tiles := g.state.Map.FootprintTiles(p.Pos, p.Width, p.Height)
		for _, t := range tiles {
			if t.OnFire {
				g.kill(p, t.FiredBy)
				deaths++
				break
			}
		}
		if !p.Alive {
			continue
		}

		for _, t := range tiles {
			if t.Collectible == nil {
				continue
			}
			*p = ApplyUpgrade(t.Collectible.Kind, *p, g.cfg)
			g.removeCollectible(t.Row, t.Col)
			t.Collectible = nil
		}
	}
	return deaths
}

// kill marks p dead and credits the owner of the fire, unless it was p.
// MUST be called while g.mu is held.
func (g *Game) kill(p *Player, by PlayerID) {
	p.Alive = false
	p.Actions = Actions{}
	p.KilledBy = by
	if by == "" || by == p.ID {
		return
	}
	if killer, ok := g.state.Players[by]; ok {
		killer.Kills++
	}
}
