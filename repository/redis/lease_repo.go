package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/orderdesk/repository"
)

// acquireScript claims KEYS[1] for ARGV[1] unless someone else holds it.
// ARGV[2] is the TTL in milliseconds; 0 means no expiry.
var acquireScript = redislib.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and current ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// releaseScript deletes KEYS[1] only when it is still owned by ARGV[1].
var releaseScript = redislib.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type leaseRepository struct {
	client *redislib.Client
	prefix string
}

// NewLeaseRepository creates a Redis-backed audit lease repository.
func NewLeaseRepository(client *redislib.Client) repository.LeaseRepository {
	return &leaseRepository{
		client: client,
		prefix: "audit:lease:",
	}
}

func (r *leaseRepository) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	res, err := acquireScript.Run(ctx, r.client, []string{r.key(key)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (r *leaseRepository) Release(ctx context.Context, key, holder string) error {
	return releaseScript.Run(ctx, r.client, []string{r.key(key)}, holder).Err()
}

func (r *leaseRepository) Holder(ctx context.Context, key string) (string, error) {
	holder, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err == redislib.Nil {
			return "", nil
		}
		return "", err
	}
	return holder, nil
}

func (r *leaseRepository) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}
