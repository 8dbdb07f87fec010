// Package cache holds the Redis-backed idempotency store used by booking
// creation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress is returned when another request holding the same key
	// has not finished yet.
	ErrInProgress = errors.New("request with this idempotency key is in progress")

	// ErrKeyReused is returned when a key comes back with a different
	// request payload.
	ErrKeyReused = errors.New("idempotency key was used with a different request")
)

// Response is the stored outcome of a request.  Status is zero while the
// request holding the key is still running.
type Response struct {
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body,omitempty"`
	Fingerprint string          `json:"fingerprint"`
}

// Fingerprint hashes a request payload for Reserve.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Idempotency remembers responses by (scope, key) for TTL.
type Idempotency struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewIdempotency(rdb *redis.Client, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{rdb: rdb, ttl: ttl, prefix: "idem"}
}

func (s *Idempotency) key(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key)
}

// Reserve claims (scope, key) for the request with the given fingerprint.
// When the key was already used it returns the stored response,
// ErrInProgress if that request is still running, or ErrKeyReused if the
// fingerprints differ.  A nil response with a nil error means the caller
// owns the key and must call Complete or Release.
func (s *Idempotency) Reserve(ctx context.Context, scope, key, fingerprint string) (*Response, error) {
	k := s.key(scope, key)

	pending, err := json.Marshal(Response{Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}

	ok, err := s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.Reserve(ctx, scope, key, fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode idempotent response: %w", err)
	}

	switch {
	case resp.Fingerprint != fingerprint:
		return nil, ErrKeyReused
	case resp.Status == 0:
		return nil, ErrInProgress
	}

	return &resp, nil
}

// Complete stores the response for replay.  resp.Fingerprint must match
// the one passed to Reserve.
func (s *Idempotency) Complete(ctx context.Context, scope, key string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(scope, key), b, s.ttl).Err()
}

// Release forgets the key so the request can be retried.
func (s *Idempotency) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, s.key(scope, key)).Err()
}
