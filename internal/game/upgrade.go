package game

import (
	"math/rand"
	"time"
)

// upgradeKinds is the pool rolled from when a breakable tile drops an upgrade.
var upgradeKinds = []UpgradeKind{PowerUp, BombUp, SpeedUp}

// ApplyUpgrade returns the player with the effect of kind applied. The input
// value is not modified.
func ApplyUpgrade(kind UpgradeKind, p Player, cfg Config) Player {
	switch kind {
	case PowerUp:
		p.BombPower++
	case BombUp:
		p.MaxBombs++
	case SpeedUp:
		p.Speed = max(p.Speed-cfg.SpeedStep, cfg.MinMoveInterval)
	}
	p.ActiveBombs = append([]BombID(nil), p.ActiveBombs...)
	return p
}

// rollUpgrade returns a fresh upgrade for the tile with probability rate.
func rollUpgrade(rng *rand.Rand, rate float64, row, col int) *Upgrade {
	if rng.Float64() >= rate {
		return nil
	}
	return &Upgrade{
		Kind: upgradeKinds[rng.Intn(len(upgradeKinds))],
		Row:  row,
		Col:  col,
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
