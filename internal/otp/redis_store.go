package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStoreTimeout = 2 * time.Second

// RedisStore implements Store on go-redis. Each call runs under its own
// timeout derived from the caller's context.
type RedisStore struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisStore wraps client. A non-positive timeout selects the default.
func NewRedisStore(client redis.UniversalClient, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.PTTL(ctx, key).Result()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Del(ctx, keys...).Err()
}

// reserveScript runs cooldown, window and daily checks in one round trip.
// Result is {code, pttl}: 0 ok, 1 cooldown, 2 window, 3 daily.
var reserveScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  return {1, ttl}
end
local w = redis.call('INCR', KEYS[2])
if redis.call('PTTL', KEYS[2]) < 0 then
  redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
if w > tonumber(ARGV[3]) then
  return {2, redis.call('PTTL', KEYS[2])}
end
local d = redis.call('INCR', KEYS[3])
if redis.call('PTTL', KEYS[3]) < 0 then
  redis.call('PEXPIRE', KEYS[3], ARGV[4])
end
if d > tonumber(ARGV[5]) then
  return {3, redis.call('PTTL', KEYS[3])}
end
redis.call('SET', KEYS[1], '1', 'PX', ARGV[1])
return {0, 0}
`)

// Reserve implements AtomicReserver.
func (s *RedisStore) Reserve(ctx context.Context, keys ReserveKeys, limits Limits) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := reserveScript.Run(ctx, s.client,
		[]string{keys.Cooldown, keys.Window, keys.Daily},
		limits.ResendCooldown.Milliseconds(),
		limits.Window.Milliseconds(),
		limits.MaxInWindow,
		limits.DailyTTL.Milliseconds(),
		limits.DailyLimit,
	).Int64Slice()
	if err != nil {
		return "", 0, err
	}
	if len(res) != 2 {
		return "", 0, fmt.Errorf("unexpected reserve reply %v", res)
	}

	retry := time.Duration(res[1]) * time.Millisecond
	switch res[0] {
	case 0:
		return "", 0, nil
	case 1:
		return ReasonCooldown, retry, nil
	case 2:
		return ReasonWindow, retry, nil
	case 3:
		return ReasonDaily, retry, nil
	default:
		return "", 0, fmt.Errorf("unexpected reserve code %d", res[0])
	}
}
