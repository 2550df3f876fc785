package balancer

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrDuplicateServer = errors.New("server already connected")
	ErrUnknownServer   = errors.New("server not connected")
	ErrNoServers       = errors.New("no game server available")
)

// Store is the registry of connected game servers.
type Store interface {
	Add(ctx context.Context, info ServerInfo) error
	Update(ctx context.Context, info ServerInfo) error
	Remove(ctx context.Context, url string) error
	List(ctx context.Context) ([]ServerInfo, error)
}

// MemoryStore keeps the registry in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	servers map[string]ServerInfo
}

// NewMemoryStore returns an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{servers: make(map[string]ServerInfo)}
}

func (s *MemoryStore) Add(_ context.Context, info ServerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[info.URL]; ok {
		return ErrDuplicateServer
	}
	s.servers[info.URL] = info
	return nil
}

func (s *MemoryStore) Update(_ context.Context, info ServerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[info.URL]; !ok {
		return ErrUnknownServer
	}
	s.servers[info.URL] = info
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[url]; !ok {
		return ErrUnknownServer
	}
	delete(s.servers, url)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]ServerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ServerInfo, 0, len(s.servers))
	for _, info := range s.servers {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}
