package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Entry is one row of the leaderboard.
type Entry struct {
	Player string `json:"player"`
	Wins   int64  `json:"wins"`
	Kills  int64  `json:"kills"`
}

// hashReader is the subset of *redis.Client used to load the counters.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// subscriber is the subset of *redis.Client used to follow updates.
type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Leaderboard keeps an in-memory copy of the counters, kept current through
// Redis pub/sub.
type Leaderboard struct {
	mu     sync.RWMutex
	wins   map[string]int64
	kills  map[string]int64
	logger *log.Logger
}

// NewLeaderboard returns an empty leaderboard.
func NewLeaderboard(logger *log.Logger) *Leaderboard {
	if logger == nil {
		logger = log.New(os.Stderr, "[LEADERBOARD] ", log.LstdFlags)
	}
	return &Leaderboard{
		wins:   make(map[string]int64),
		kills:  make(map[string]int64),
		logger: logger,
	}
}

// Load replaces the counters with the contents of Redis.
func (l *Leaderboard) Load(ctx context.Context, client hashReader) error {
	wins, err := readCounters(ctx, client, WinnerKey)
	if err != nil {
		return err
	}
	kills, err := readCounters(ctx, client, KillsKey)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.wins, l.kills = wins, kills
	l.mu.Unlock()
	return nil
}

func readCounters(ctx context.Context, client hashReader, key string) (map[string]int64, error) {
	raw, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	out := make(map[string]int64, len(raw))
	for player, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load %s: %s has count %q: %w", key, player, v, err)
		}
		out[player] = n
	}
	return out, nil
}

// Listen applies published updates until ctx is done.
func (l *Leaderboard) Listen(ctx context.Context, client subscriber) error {
	pubsub := client.Subscribe(ctx, WinnerKey, KillsKey)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var u Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				l.logger.Printf("Bad update on %s: %v", msg.Channel, err)
				continue
			}
			l.Apply(msg.Channel, u)
		}
	}
}

// Apply sets a counter from a published update.
func (l *Leaderboard) Apply(channel string, u Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch channel {
	case WinnerKey:
		l.wins[u.Player] = u.Value
	case KillsKey:
		l.kills[u.Player] = u.Value
	}
}

// Top returns up to limit entries ordered by wins, then kills, then name.
// A limit of zero or less returns everything.
func (l *Leaderboard) Top(limit int) []Entry {
	l.mu.RLock()
	players := make(map[string]*Entry)
	entry := func(p string) *Entry {
		if e, ok := players[p]; ok {
			return e
		}
		e := &Entry{Player: p}
		players[p] = e
		return e
	}
	for p, n := range l.wins {
		entry(p).Wins = n
	}
	for p, n := range l.kills {
		entry(p).Kills = n
	}
	l.mu.RUnlock()

	out := make([]Entry, 0, len(players))
	for _, e := range players {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Kills != out[j].Kills {
			return out[i].Kills > out[j].Kills
		}
		return out[i].Player < out[j].Player
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
