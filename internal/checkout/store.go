package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps checkout sessions keyed by the shopper's session token.
type Store interface {
	// Load returns the stored session, or a fresh Browsing session when
	// the token is unknown or expired.
	Load(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, token string, s *Session) error
	Delete(ctx context.Context, token string) error

	// AcquireCapture takes the session's single-flight capture lock.
	// False means another request is mid-capture for this token: two
	// loads of the same PaymentReady session must never both reach
	// Approve, or a double-submitted approval would fan out twice.
	AcquireCapture(ctx context.Context, token string) (bool, error)
	ReleaseCapture(ctx context.Context, token string) error
}

// RedisStore holds sessions in Redis with a TTL, which is what keeps carts
// transient: an abandoned cart simply ages out.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// captureLockTTL bounds how long a crashed capture can keep a session
// locked before the shopper may retry.
const captureLockTTL = 30 * time.Second

func key(token string) string     { return "checkout:session:" + token }
func lockKey(token string) string { return "checkout:capture:" + token }

func (r *RedisStore) Load(ctx context.Context, token string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// a corrupt session is not worth failing a request over
		return NewSession(), nil
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, token string, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key(token), raw, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, key(token)).Err()
}

// AcquireCapture uses SET NX so that of two concurrent captures for the
// same token, exactly one wins; the lock expires on its own if the
// winner never releases it.
func (r *RedisStore) AcquireCapture(ctx context.Context, token string) (bool, error) {
	return r.rdb.SetNX(ctx, lockKey(token), "1", captureLockTTL).Result()
}

func (r *RedisStore) ReleaseCapture(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, lockKey(token)).Err()
}
