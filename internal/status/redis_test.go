package status

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/progress"
)

// Runs against a real server only when TEST_REDIS_URL is set.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := DialRedis(ctx, url, time.Minute)
	require.NoError(t, err)
	s.prefix = "appreviewer:test:" + uuid.NewString() + ":"
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "f1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Update(ctx, "f1", func(*Entry) {}), ErrNotFound)

	require.NoError(t, s.Create(ctx, Entry{ID: "f1", Status: progress.Running, Progress: 40}))
	require.NoError(t, s.Update(ctx, "f1", func(e *Entry) {
		e.Status = progress.Completed
		e.Progress = 100
		e.Result = &model.AnalysisReport{OverallScore: 79}
	}))

	got, err := s.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, progress.Completed, got.Status)
	assert.Equal(t, 79, got.Result.OverallScore)

	ttl, err := s.client.TTL(ctx, s.key("f1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Delete(ctx, "f1"))
	_, err = s.Get(ctx, "f1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDialRedis_BadURL(t *testing.T) {
	t.Parallel()
	_, err := DialRedis(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
