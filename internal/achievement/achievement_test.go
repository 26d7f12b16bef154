package achievement

import (
	"context"
	"sync"
	"testing"

	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService(t *testing.T) *Service {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewService(store.New(client))
}

// recordingNotifier 记录每次解锁回调
type recordingNotifier struct {
	mu       sync.Mutex
	unlocked []domain.Achievement
}

func (n *recordingNotifier) NotifyUnlocks(userID string, unlocked []domain.Achievement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocked = append(n.unlocked, unlocked...)
}

func (n *recordingNotifier) ids() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]int, 0, len(n.unlocked))
	for _, a := range n.unlocked {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestEvaluate(t *testing.T) {
	t.Run("unmet targets stay locked", func(t *testing.T) {
		fresh := Evaluate(domain.Stats{MessagesSent: 9}, domain.NewUnlockedSet(nil))
		assert.Empty(t, fresh)
	})

	t.Run("met target unlocks once", func(t *testing.T) {
		stats := domain.Stats{MessagesSent: 10}
		unlocked := domain.NewUnlockedSet(nil)

		fresh := Evaluate(stats, unlocked)
		require.Len(t, fresh, 1)
		assert.Equal(t, 3, fresh[0].ID)

		// 同一输入再跑一次，已解锁的不再返回
		unlocked.Add(3)
		assert.Empty(t, Evaluate(stats, unlocked))
	})

	t.Run("watch time hour unlocks at exactly 3600", func(t *testing.T) {
		assert.Empty(t, Evaluate(domain.Stats{WatchTime: 3599}, domain.NewUnlockedSet(nil)))

		fresh := Evaluate(domain.Stats{WatchTime: 3600}, domain.NewUnlockedSet(nil))
		require.Len(t, fresh, 1)
		assert.Equal(t, 4, fresh[0].ID)
	})

	t.Run("multiple unlocks in one pass", func(t *testing.T) {
		stats := domain.Stats{VideosAdded: 10, MaxQueueSize: 5}
		fresh := Evaluate(stats, domain.NewUnlockedSet(nil))

		ids := make([]int, len(fresh))
		for i, a := range fresh {
			ids[i] = a.ID
		}
		assert.ElementsMatch(t, []int{2, 5, 7}, ids)
	})
}

func TestProgress(t *testing.T) {
	hourHero, ok := ByID(4)
	require.True(t, ok)

	assert.Equal(t, float64(0), Progress(hourHero, domain.Stats{}))
	assert.Equal(t, float64(50), Progress(hourHero, domain.Stats{WatchTime: 1800}))
	assert.Equal(t, float64(100), Progress(hourHero, domain.Stats{WatchTime: 3600}))
	// 超出目标钳制为100
	assert.Equal(t, float64(100), Progress(hourHero, domain.Stats{WatchTime: 9999}))
}

func TestServiceApply(t *testing.T) {
	ctx := context.Background()

	t.Run("stats accumulate and persist", func(t *testing.T) {
		svc := setupTestService(t)

		svc.AddVideo(ctx, "u1")
		svc.AddVideo(ctx, "u1")
		svc.AddMessage(ctx, "u1")

		stats := svc.Stats(ctx, "u1")
		assert.Equal(t, int64(2), stats.VideosAdded)
		assert.Equal(t, int64(1), stats.MessagesSent)
	})

	t.Run("unlock fires notifier exactly once", func(t *testing.T) {
		svc := setupTestService(t)
		notifier := &recordingNotifier{}
		svc.SetNotifier(notifier)

		svc.AddVideo(ctx, "u1")
		assert.Equal(t, []int{2}, notifier.ids())

		// 重复事件不会重复解锁
		svc.AddVideo(ctx, "u1")
		assert.Equal(t, []int{2}, notifier.ids())

		assert.True(t, svc.Unlocked(ctx, "u1").Contains(2))
	})

	t.Run("unlocked set is monotonic across mutations", func(t *testing.T) {
		svc := setupTestService(t)

		for i := 0; i < 10; i++ {
			svc.AddMessage(ctx, "u1")
		}
		require.True(t, svc.Unlocked(ctx, "u1").Contains(3))

		// 后续无关变更不会清掉已解锁的成就
		svc.ObserveQueueSize(ctx, "u1", 1)
		assert.True(t, svc.Unlocked(ctx, "u1").Contains(3))
	})

	t.Run("max queue size is high water", func(t *testing.T) {
		svc := setupTestService(t)

		svc.ObserveQueueSize(ctx, "u1", 5)
		svc.ObserveQueueSize(ctx, "u1", 2)

		stats := svc.Stats(ctx, "u1")
		assert.Equal(t, int64(5), stats.MaxQueueSize)
		assert.True(t, svc.Unlocked(ctx, "u1").Contains(7))
	})

	t.Run("stats never regress", func(t *testing.T) {
		svc := setupTestService(t)

		var prev domain.Stats
		mutations := []func(){
			func() { svc.AddVideo(ctx, "u1") },
			func() { svc.AddMessage(ctx, "u1") },
			func() { svc.AddWatchSecond(ctx, "u1") },
			func() { svc.ObserveQueueSize(ctx, "u1", 3) },
			func() { svc.ObserveQueueSize(ctx, "u1", 1) },
			func() { svc.ConnectDiscord(ctx, "u1") },
			func() { svc.AddSession(ctx, "u1") },
		}

		for _, mutate := range mutations {
			mutate()
			current := svc.Stats(ctx, "u1")
			assert.True(t, current.Dominates(prev))
			prev = current
		}
	})

	t.Run("unknown persisted ids are dropped", func(t *testing.T) {
		svc := setupTestService(t)

		svc.store.Save(ctx, store.UserKey("u1", store.FieldUnlocked), []int{2, 999})

		unlocked := svc.Unlocked(ctx, "u1")
		assert.True(t, unlocked.Contains(2))
		assert.False(t, unlocked.Contains(999))
	})
}

func TestCatalogIntegrity(t *testing.T) {
	seen := map[int]bool{}
	for _, a := range Catalog {
		assert.False(t, seen[a.ID], "duplicate achievement id %d", a.ID)
		seen[a.ID] = true
		assert.Positive(t, a.Target)
		assert.NotEmpty(t, a.Name)
		assert.NotEmpty(t, a.TypeName)
	}
}
