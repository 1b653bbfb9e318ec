package redis

import (
	"context"
	"time"

	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultPresenceTTL = 2 * time.Hour

// decrFloor returns -1 for a missing key, otherwise decrements and deletes the key at zero.
var decrFloor = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
	redis.call('DEL', KEYS[1])
	return 0
end
redis.call('EXPIRE', KEYS[1], ARGV[1])
return n
`)

// PresenceStore counts sessions per user in redis so every node sees the same total.
// Keys expire after ttl so a crashed node cannot pin a user online forever.
type PresenceStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewPresenceStore(client goredis.UniversalClient, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceStore{client: client, prefix: "presence:", ttl: ttl}
}

var _ repository.PresenceStore = (*PresenceStore)(nil)

func (s *PresenceStore) key(userID string) string {
	return s.prefix + userID
}

func (s *PresenceStore) Incr(ctx context.Context, userID string) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.key(userID))
	pipe.Expire(ctx, s.key(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "presence incr")
	}
	return incr.Val(), nil
}

func (s *PresenceStore) Decr(ctx context.Context, userID string) (int64, error) {
	n, err := decrFloor.Run(ctx, s.client, []string{s.key(userID)}, int(s.ttl.Seconds())).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "presence decr")
	}
	return n, nil
}

func (s *PresenceStore) Count(ctx context.Context, userID string) (int64, error) {
	n, err := s.client.Get(ctx, s.key(userID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "presence count")
	}
	return n, nil
}
