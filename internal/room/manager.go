package room

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/amalg/dci-bomberman/internal/balancer"
)

// Manager holds the rooms of one game server. Rooms are created on demand
// and removed once they close.
type Manager struct {
	opts Options

	mu    sync.RWMutex
	rooms map[string]*Room
	order []string // creation order
}

func NewManager(opts Options) *Manager {
	return &Manager{
		opts:  opts.withDefaults(),
		rooms: make(map[string]*Room),
	}
}

// Create opens a new room with a random id.
func (m *Manager) Create() (*Room, error) {
	return m.create(uuid.NewString())
}

func (m *Manager) create(id string) (*Room, error) {
	r, err := NewRoom(id, m.opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.onClose = m.remove
	r.mu.Unlock()

	m.mu.Lock()
	m.rooms[id] = r
	m.order = append(m.order, id)
	m.mu.Unlock()
	return r, nil
}

func (m *Manager) remove(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[r.ID()] != r {
		return
	}
	delete(m.rooms, r.ID())
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == r.ID() })
}

// Room looks up a room by id.
func (m *Manager) Room(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return r, nil
}

// Rooms lists the open rooms, oldest first.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rooms[id])
	}
	return out
}

// JoinOrCreate places a connection in a room. With a room id the connection
// goes there. Otherwise a player already known to a room rejoins it, then
// the oldest joinable room is used, and a new room is opened last.
// Viewers without a room id watch the oldest room.
func (m *Manager) JoinOrCreate(roomID, playerID string, playing bool) (*Room, *Subscription, error) {
	if roomID != "" {
		r, err := m.Room(roomID)
		if err != nil {
			return nil, nil, err
		}
		sub, err := r.Join(playerID, playing)
		if err != nil {
			return nil, nil, err
		}
		return r, sub, nil
	}

	rooms := m.Rooms()
	if playing {
		for _, r := range rooms {
			if r.Game().HasPlayer(playerID) {
				if sub, err := r.Join(playerID, true); err == nil {
					return r, sub, nil
				}
			}
		}
	}
	for _, r := range rooms {
		if playing && !r.Joinable() {
			continue
		}
		if sub, err := r.Join(playerID, playing); err == nil {
			return r, sub, nil
		}
	}

	r, err := m.Create()
	if err != nil {
		return nil, nil, err
	}
	sub, err := r.Join(playerID, playing)
	if err != nil {
		return nil, nil, err
	}
	return r, sub, nil
}

// Info reports the load of this server for the balancer.
func (m *Manager) Info(url string) balancer.ServerInfo {
	info := balancer.ServerInfo{URL: url, Games: []balancer.GameInfo{}}
	for _, r := range m.Rooms() {
		g := r.Info()
		info.Games = append(info.Games, g)
		info.GameCount++
		info.PlayerCount += len(g.Players)
		info.ViewerCount += g.Viewers
	}
	return info
}

// Close closes every room.
func (m *Manager) Close() {
	for _, r := range m.Rooms() {
		r.Close()
	}
}
