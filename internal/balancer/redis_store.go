package balancer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// ServersKey is the Redis hash holding one JSON ServerInfo per URL.
const ServersKey = "balancer:servers"

// hashClient is the subset of *redis.Client used by RedisStore.
type hashClient interface {
	HSetNX(ctx context.Context, key, field string, value interface{}) *redis.BoolCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HExists(ctx context.Context, key, field string) *redis.BoolCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisStore shares the registry between balancer replicas through Redis.
type RedisStore struct {
	client hashClient
	key    string
}

// NewRedisStore returns a store backed by the ServersKey hash.
func NewRedisStore(client hashClient) *RedisStore {
	return &RedisStore{client: client, key: ServersKey}
}

func (s *RedisStore) Add(ctx context.Context, info ServerInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode server %s: %w", info.URL, err)
	}
	added, err := s.client.HSetNX(ctx, s.key, info.URL, data).Result()
	if err != nil {
		return fmt.Errorf("add server %s: %w", info.URL, err)
	}
	if !added {
		return ErrDuplicateServer
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, info ServerInfo) error {
	exists, err := s.client.HExists(ctx, s.key, info.URL).Result()
	if err != nil {
		return fmt.Errorf("update server %s: %w", info.URL, err)
	}
	if !exists {
		return ErrUnknownServer
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode server %s: %w", info.URL, err)
	}
	if err := s.client.HSet(ctx, s.key, info.URL, data).Err(); err != nil {
		return fmt.Errorf("update server %s: %w", info.URL, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, url string) error {
	removed, err := s.client.HDel(ctx, s.key, url).Result()
	if err != nil {
		return fmt.Errorf("remove server %s: %w", url, err)
	}
	if removed == 0 {
		return ErrUnknownServer
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]ServerInfo, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	out := make([]ServerInfo, 0, len(raw))
	for url, data := range raw {
		var info ServerInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			return nil, fmt.Errorf("decode server %s: %w", url, err)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}
