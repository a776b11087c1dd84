package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/zeebo/blake3"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

// RevocationStore records tokens invalidated before their natural expiry.
// An entry is honored for domain.TokenTTL after it was added and treated as
// absent afterwards, whether or not it was physically removed.
type RevocationStore interface {
	Add(ctx context.Context, token string) error
	Contains(ctx context.Context, token string) (bool, error)
}

// Sweeper is implemented by stores that need expired entries removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Fingerprint is the storage key for a token; raw tokens are never persisted.
func Fingerprint(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// live reports whether an entry created at createdAt is still honored at now.
func live(createdAt, now time.Time, ttl time.Duration) bool {
	return now.Before(createdAt.Add(ttl))
}

type redisRevocationStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRevocationStore keeps entries as keys with a TTL; the stored
// creation time is rechecked on read.
func NewRedisRevocationStore(client *redis.Client, prefix string) RevocationStore {
	if prefix == "" {
		prefix = "revoked"
	}
	return &redisRevocationStore{client: client, prefix: prefix, ttl: domain.TokenTTL, now: time.Now}
}

func (s *redisRevocationStore) key(token string) string {
	return s.prefix + ":" + Fingerprint(token)
}

func (s *redisRevocationStore) Add(ctx context.Context, token string) error {
	createdAt := s.now()
	if err := s.client.SetNX(ctx, s.key(token), createdAt.UnixMilli(), s.ttl).Err(); err != nil {
		return oops.Code("REVOCATION_ADD_FAILED").With("backend", "redis").Wrap(err)
	}
	return nil
}

func (s *redisRevocationStore) Contains(ctx context.Context, token string) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").With("backend", "redis").Wrap(err)
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").With("backend", "redis").Wrap(err)
	}
	return live(time.UnixMilli(millis), s.now(), s.ttl), nil
}
