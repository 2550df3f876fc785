package room

import (
	"sync"

	"github.com/amalg/dci-bomberman/internal/game"
)

// Subscription is one connection's view of a room. States only ever holds
// the newest snapshot; a slow reader skips intermediate ones.
type Subscription struct {
	PlayerID string
	Playing  bool

	states chan game.Snapshot
	over   chan game.Snapshot
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	lastSeq uint64
}

func newSubscription(playerID string, playing bool) *Subscription {
	return &Subscription{
		PlayerID: playerID,
		Playing:  playing,
		states:   make(chan game.Snapshot, 1),
		over:     make(chan game.Snapshot, 1),
		done:     make(chan struct{}),
	}
}

// States yields state snapshots, latest wins.
func (s *Subscription) States() <-chan game.Snapshot { return s.states }

// GameOver yields the final snapshot once.
func (s *Subscription) GameOver() <-chan game.Snapshot { return s.over }

// Done is closed when the subscription ends, either by Leave or because the
// room closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// deliver queues snap unless a newer snapshot was already delivered.
func (s *Subscription) deliver(snap game.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Seq < s.lastSeq {
		return
	}
	s.lastSeq = snap.Seq

	select {
	case s.states <- snap:
		return
	default:
	}
	// Drop the stale snapshot, the newest one matters most.
	select {
	case <-s.states:
	default:
	}
	select {
	case s.states <- snap:
	default:
	}
}

func (s *Subscription) finish(snap game.Snapshot) {
	select {
	case s.over <- snap:
	default:
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}
