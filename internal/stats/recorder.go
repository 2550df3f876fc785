package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/amalg/dci-bomberman/internal/game"
)

// Redis keys. Each is both a hash of player -> count and the pub/sub channel
// announcing changes to it.
const (
	WinnerKey = "stats:winner"
	KillsKey  = "stats:kills"
)

// Update is published whenever a counter changes.
type Update struct {
	Player string `json:"player"`
	Value  int64  `json:"value"`
}

// counterClient is the subset of *redis.Client used by Recorder.
type counterClient interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Recorder stores game outcomes in Redis.
type Recorder struct {
	client counterClient
	logger *log.Logger
}

// NewRecorder creates a Recorder on the given client.
func NewRecorder(client counterClient, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(os.Stderr, "[STATS] ", log.LstdFlags)
	}
	return &Recorder{client: client, logger: logger}
}

// RecordGame credits the winner and every killer of a finished game.
// Draws only record kills.
func (r *Recorder) RecordGame(ctx context.Context, result game.Result) error {
	if result.Winner != "" {
		if err := r.increment(ctx, WinnerKey, result.Winner, 1); err != nil {
			return err
		}
	}
	for _, id := range result.Players {
		if kills := result.Kills[id]; kills > 0 {
			if err := r.increment(ctx, KillsKey, id, int64(kills)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Recorder) increment(ctx context.Context, key, player string, by int64) error {
	value, err := r.client.HIncrBy(ctx, key, player, by).Result()
	if err != nil {
		return fmt.Errorf("increment %s for %s: %w", key, player, err)
	}

	msg, err := json.Marshal(Update{Player: player, Value: value})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, key, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	r.logger.Printf("%s %s = %d", key, player, value)
	return nil
}
