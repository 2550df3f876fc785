package game

import (
	"sync"
	"time"
)

// Engine drives a Game at a fixed tick rate.
type Engine struct {
	game     *Game
	tickRate int
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewEngine creates a loop ticking g tickRate times per second.
func NewEngine(g *Game, tickRate int) *Engine {
	if tickRate <= 0 {
		tickRate = DefaultConfig().TickRate
	}
	return &Engine{
		game:     g,
		tickRate: tickRate,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Game returns the driven game.
func (e *Engine) Game() *Game { return e.game }

// Run ticks the game until Stop is called. It blocks.
func (e *Engine) Run() {
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.game.GameTick(e.now())
		}
	}
}

// Stop halts the loop. It is safe to call more than once, and before Run.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
	})
}

// Done is closed once Stop has been called.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
