package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a cached token is absent or already evicted.
var ErrNotFound = errors.New("token: not found")

// Store keeps short-lived verification state in redis. Every entry expires
// after the configured TTL; expiry is the only invalidation mechanism.
//
// Key layout:
//
//	access:{email} -> mirrored access token
//	verify:{email} -> email-verification token
//	fp:{email}     -> password-reset token
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store with a fixed per-entry TTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// MirrorAccessToken stores the most recently issued access token under the
// user's email.
func (s *Store) MirrorAccessToken(ctx context.Context, email, accessToken string) error {
	return s.set(ctx, accessKey(email), accessToken)
}

// SaveVerification stores an email-verification token for the address.
func (s *Store) SaveVerification(ctx context.Context, email, opaque string) error {
	return s.set(ctx, verifyKey(email), opaque)
}

// Verification returns the cached email-verification token, or ErrNotFound.
func (s *Store) Verification(ctx context.Context, email string) (string, error) {
	return s.get(ctx, verifyKey(email))
}

// SaveReset stores a password-reset token for the address.
func (s *Store) SaveReset(ctx context.Context, email, opaque string) error {
	return s.set(ctx, resetKey(email), opaque)
}

// Reset returns the cached password-reset token, or ErrNotFound.
func (s *Store) Reset(ctx context.Context, email string) (string, error) {
	return s.get(ctx, resetKey(email))
}

// TTL exposes the configured entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("token: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("token: get %s: %w", key, err)
	}
	return value, nil
}

func accessKey(email string) string { return "access:" + email }
func verifyKey(email string) string { return "verify:" + email }
func resetKey(email string) string  { return "fp:" + email }

// NewOpaque returns a high-entropy opaque token: 64 random bytes, hex encoded.
func NewOpaque() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: opaque: %w", err)
	}
	return hex.EncodeToString(b), nil
}
