package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/pkg/utils"
)

const seenKeyPrefix = "crawl:seen:"

// DefaultSeenTTL bounds how long a crashed run's set survives.
const DefaultSeenTTL = 6 * time.Hour

// SeenSetProvider hands out one Redis set per extraction run.
type SeenSetProvider struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeenSetProvider creates a new instance of SeenSetProvider.
func NewSeenSetProvider(client *redis.Client, ttl time.Duration) *SeenSetProvider {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &SeenSetProvider{client: client, ttl: ttl}
}

func (p *SeenSetProvider) NewRun(ctx context.Context) (repository.SeenSet, error) {
	key := seenKeyPrefix + uuid.NewString()
	if err := p.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &seenSet{client: p.client, key: key, ttl: p.ttl}, nil
}

// seenSet stores hashed links so arbitrary URLs make compact members.
type seenSet struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// MarkSeen adds link and reports whether it was new. SADD is atomic, so the
// check and the insert cannot interleave.
func (s *seenSet) MarkSeen(ctx context.Context, link string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.key, utils.HashURL(link)).Result()
	if err != nil {
		return false, err
	}
	if added == 1 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return true, err
		}
	}
	return added == 1, nil
}

func (s *seenSet) Len(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	return int(n), err
}

func (s *seenSet) Release(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
