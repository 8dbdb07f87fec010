package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Idempotency, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewIdempotency(rdb, time.Hour), mr
}

func TestReserveCompleteReplay(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	resp, err := s.Reserve(ctx, "user:7", "abc", "fp")
	require.NoError(t, err)
	assert.Nil(t, resp)

	_, err = s.Reserve(ctx, "user:7", "abc", "fp")
	assert.ErrorIs(t, err, ErrInProgress)

	body := json.RawMessage(`{"id":1}`)
	require.NoError(t, s.Complete(ctx, "user:7", "abc", Response{Status: http.StatusCreated, Body: body, Fingerprint: "fp"}))

	resp, err = s.Reserve(ctx, "user:7", "abc", "fp")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
}

func TestReserveIsScoped(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	_, err := s.Reserve(ctx, "user:7", "abc", "fp")
	require.NoError(t, err)

	resp, err := s.Reserve(ctx, "user:8", "abc", "fp")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	_, err := s.Reserve(ctx, "user:7", "k1", "fp")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "user:7", "k1"))

	resp, err := s.Reserve(ctx, "user:7", "k1", "fp")
	require.NoError(t, err)
	assert.Nil(t, resp)

	mr.FastForward(2 * time.Hour)

	resp, err = s.Reserve(ctx, "user:7", "k1", "fp")
	require.NoError(t, err)
	assert.Nil(t, resp, "expired key can be claimed again")
}

func TestReserveRejectsDifferentPayload(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	first := Fingerprint([]byte(`{"room_id":2}`))
	second := Fingerprint([]byte(`{"room_id":3}`))
	require.NotEqual(t, first, second)
	assert.Equal(t, first, Fingerprint([]byte(`{"room_id":2}`)))

	_, err := s.Reserve(ctx, "user:7", "abc", first)
	require.NoError(t, err)

	_, err = s.Reserve(ctx, "user:7", "abc", second)
	assert.ErrorIs(t, err, ErrKeyReused, "while the first request runs")

	require.NoError(t, s.Complete(ctx, "user:7", "abc", Response{Status: http.StatusCreated, Body: json.RawMessage(`{}`), Fingerprint: first}))

	_, err = s.Reserve(ctx, "user:7", "abc", second)
	assert.ErrorIs(t, err, ErrKeyReused, "after completion")

	resp, err := s.Reserve(ctx, "user:7", "abc", first)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusCreated, resp.Status)
}
