package balancer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker serialises server picks across balancer replicas.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// JoinLockName is the redsync mutex guarding a pick.
const JoinLockName = "balancer:join_lock"

// RedsyncLocker is a Locker backed by a Redis distributed mutex.
type RedsyncLocker struct {
	rs     *redsync.Redsync
	name   string
	expiry time.Duration
}

// NewRedsyncLocker creates a distributed lock on the given client.
func NewRedsyncLocker(client *redis.Client) *RedsyncLocker {
	pool := goredis.NewPool(client)
	return &RedsyncLocker{
		rs:     redsync.New(pool),
		name:   JoinLockName,
		expiry: 2 * time.Second,
	}
}

func (l *RedsyncLocker) Lock(ctx context.Context) (func(), error) {
	mutex := l.rs.NewMutex(l.name, redsync.WithExpiry(l.expiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.name, err)
	}
	return func() {
		_, _ = mutex.Unlock()
	}, nil
}

// LocalLocker is a Locker for a single balancer process.
type LocalLocker struct {
	mu sync.Mutex
}

func (l *LocalLocker) Lock(context.Context) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}
