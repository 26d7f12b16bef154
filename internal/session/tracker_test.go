package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"watchparty-svc/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return store.New(client), mr
}

// countingSink 统计回调计数
type countingSink struct {
	mu       sync.Mutex
	seconds  int
	sessions int
}

func (s *countingSink) AddWatchSecond(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seconds++
}

func (s *countingSink) AddSession(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions++
}

func (s *countingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds, s.sessions
}

func TestTrackerStartStop(t *testing.T) {
	st, mr := setupTestStore(t)
	ctx := context.Background()

	t.Run("start persists marker, stop removes it", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u1", st, sink)

		assert.False(t, tr.Running())

		tr.Start(ctx)
		assert.True(t, tr.Running())
		assert.True(t, mr.Exists(store.UserKey("u1", store.FieldSessionStart)))

		tr.Stop(ctx)
		assert.False(t, tr.Running())
		assert.False(t, mr.Exists(store.UserKey("u1", store.FieldSessionStart)))
	})

	t.Run("start is idempotent", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u2", st, sink)

		tr.Start(ctx)
		tr.Start(ctx)
		assert.True(t, tr.Running())
		tr.Stop(ctx)
	})

	t.Run("stop without start is no-op", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u3", st, sink)

		tr.Stop(ctx)
		_, sessions := sink.counts()
		assert.Equal(t, 0, sessions)
	})
}

func TestTrackerTicks(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("each tick adds one watch second", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u1", st, sink)

		tr.Start(ctx)
		// 直接驱动tick，不依赖真实时钟
		tr.tick(ctx)
		tr.tick(ctx)
		tr.tick(ctx)
		tr.Stop(ctx)

		seconds, sessions := sink.counts()
		assert.Equal(t, 3, seconds)
		assert.Equal(t, 1, sessions)
	})

	t.Run("zero tick session is not counted", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u2", st, sink)

		tr.Start(ctx)
		tr.Stop(ctx)

		seconds, sessions := sink.counts()
		assert.Equal(t, 0, seconds)
		assert.Equal(t, 0, sessions)
	})

	t.Run("tick after stop is ignored", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u3", st, sink)

		tr.Start(ctx)
		tr.tick(ctx)
		tr.Stop(ctx)
		tr.tick(ctx)

		seconds, _ := sink.counts()
		assert.Equal(t, 1, seconds)
	})

	t.Run("ticker loop accrues with short interval", func(t *testing.T) {
		sink := &countingSink{}
		tr := NewTracker(ctx, "u4", st, sink)
		tr.SetInterval(5 * time.Millisecond)

		tr.Start(ctx)
		time.Sleep(40 * time.Millisecond)
		tr.Stop(ctx)

		seconds, sessions := sink.counts()
		assert.Greater(t, seconds, 0)
		assert.Equal(t, 1, sessions)
	})
}

func TestTrackerDiscardsStaleMarker(t *testing.T) {
	st, mr := setupTestStore(t)
	ctx := context.Background()

	// 模拟上一次运行死在播放中留下的标记
	markerKey := store.UserKey("u1", store.FieldSessionStart)
	st.Save(ctx, markerKey, time.Now().Add(-2*time.Hour).UnixMilli())

	sink := &countingSink{}
	tr := NewTracker(ctx, "u1", st, sink)

	// 标记被丢弃：不恢复会话，不按墙钟补记时长
	require.False(t, tr.Running())
	assert.False(t, mr.Exists(markerKey))

	seconds, sessions := sink.counts()
	assert.Equal(t, 0, seconds)
	assert.Equal(t, 0, sessions)
}
