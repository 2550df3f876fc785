package balancer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
)

// Balancer routes players to the least loaded game server.
type Balancer struct {
	store  Store
	locker Locker
	logger *log.Logger
}

// New creates a Balancer. A nil locker falls back to a process-local one.
func New(store Store, locker Locker, logger *log.Logger) *Balancer {
	if locker == nil {
		locker = &LocalLocker{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[BALANCER] ", log.LstdFlags)
	}
	return &Balancer{store: store, locker: locker, logger: logger}
}

// Connect registers a game server.
func (b *Balancer) Connect(ctx context.Context, info ServerInfo) error {
	if err := b.store.Add(ctx, info); err != nil {
		return err
	}
	b.logger.Printf("Server connected: %s", info.URL)
	return nil
}

// Disconnect forgets a game server.
func (b *Balancer) Disconnect(ctx context.Context, url string) error {
	if err := b.store.Remove(ctx, url); err != nil {
		return err
	}
	b.logger.Printf("Server disconnected: %s", url)
	return nil
}

// Update replaces the load report of a game server.
func (b *Balancer) Update(ctx context.Context, info ServerInfo) error {
	return b.store.Update(ctx, info)
}

// Observe records a report from discovery, connecting unknown servers.
func (b *Balancer) Observe(ctx context.Context, info ServerInfo) error {
	err := b.store.Update(ctx, info)
	if errors.Is(err, ErrUnknownServer) {
		return b.Connect(ctx, info)
	}
	return err
}

// Servers lists the connected game servers.
func (b *Balancer) Servers(ctx context.Context) ([]ServerInfo, error) {
	return b.store.List(ctx)
}

// JoinGame returns the URL of the server with the fewest games. The pick
// reserves a player slot on that server until its next update, so parallel
// joins spread out.
func (b *Balancer) JoinGame(ctx context.Context) (string, error) {
	unlock, err := b.locker.Lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	servers, err := b.store.List(ctx)
	if err != nil {
		return "", err
	}
	if len(servers) == 0 {
		return "", ErrNoServers
	}

	best := servers[0]
	for _, s := range servers[1:] {
		if less(s, best) {
			best = s
		}
	}

	best.PlayerCount++
	if err := b.store.Update(ctx, best); err != nil {
		return "", fmt.Errorf("reserve slot on %s: %w", best.URL, err)
	}
	return best.URL, nil
}
