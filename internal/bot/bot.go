package bot

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/amalg/dci-bomberman/internal/game"
)

// DefaultInterval is how often a bot changes its mind.
const DefaultInterval = 3 * time.Second

// Sender delivers the bot's input to a game, in process or over the network.
type Sender func(game.Actions) error

// Bot is a random-walk player.
type Bot struct {
	id          string
	send        Sender
	interval    time.Duration
	plantChance float64
	rng         *rand.Rand
}

// Option configures a Bot.
type Option func(*Bot)

// WithInterval sets the delay between two decisions.
func WithInterval(d time.Duration) Option {
	return func(b *Bot) { b.interval = d }
}

// WithPlantChance sets the probability of planting a bomb on each decision.
func WithPlantChance(p float64) Option {
	return func(b *Bot) { b.plantChance = p }
}

// WithSeed makes the bot's choices reproducible.
func WithSeed(seed int64) Option {
	return func(b *Bot) { b.rng = rand.New(rand.NewSource(seed)) }
}

// NewID returns a fresh bot player id.
func NewID() string {
	return "bot-" + uuid.NewString()[:8]
}

// New creates a bot sending its input through send.
func New(id string, send Sender, opts ...Option) *Bot {
	b := &Bot{
		id:          id,
		send:        send,
		interval:    DefaultInterval,
		plantChance: 0.25,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the player id of the bot.
func (b *Bot) ID() string { return b.id }

// Next picks the next input: one direction or idle, maybe with a bomb.
func (b *Bot) Next() game.Actions {
	var a game.Actions
	switch b.rng.Intn(5) {
	case 0:
		a.MoveUp = true
	case 1:
		a.MoveDown = true
	case 2:
		a.MoveLeft = true
	case 3:
		a.MoveRight = true
	}
	a.PlantBomb = b.rng.Float64() < b.plantChance
	return a
}

// Run sends a new decision every interval until ctx is done or sending fails.
func (b *Bot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	if err := b.send(b.Next()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.send(b.Next()); err != nil {
				return err
			}
		}
	}
}
