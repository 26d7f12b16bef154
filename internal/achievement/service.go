package achievement

import (
	"context"
	"log"
	"sync"

	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/store"
)

// Notifier 成就解锁通知回调（由WebSocket层实现）
type Notifier interface {
	NotifyUnlocks(userID string, unlocked []domain.Achievement)
}

// Service 统计与成就服务
// 约束: 每个用户的统计只有一个写入者（per-user锁），读-改-写不与其他写入者交错
type Service struct {
	store    *store.Store
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService 创建统计与成就服务
func NewService(st *store.Store) *Service {
	return &Service{
		store: st,
		locks: make(map[string]*sync.Mutex),
	}
}

// SetNotifier 设置解锁通知回调
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// userLock 获取用户级别的互斥锁
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Apply 原子地读-改-写用户统计，随后重新评估成就
// 每次统计变更都会触发评估；评估是幂等的，重复执行不会产生新解锁
func (s *Service) Apply(ctx context.Context, userID string, mutate func(*domain.Stats)) domain.Stats {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	statsKey := store.UserKey(userID, store.FieldStats)
	stats := store.Load(ctx, s.store, statsKey, domain.Stats{}, domain.Stats.Valid)

	mutate(&stats)
	s.store.Save(ctx, statsKey, stats)

	unlocked := s.loadUnlocked(ctx, userID)
	fresh := Evaluate(stats, unlocked)
	if len(fresh) > 0 {
		for _, a := range fresh {
			unlocked.Add(a.ID)
			log.Printf("Achievement unlocked: user=%s, id=%d, name=%s", userID, a.ID, a.Name)
		}
		s.store.Save(ctx, store.UserKey(userID, store.FieldUnlocked), unlocked.IDs())

		if s.notifier != nil {
			s.notifier.NotifyUnlocks(userID, fresh)
		}
	}

	return stats
}

// Stats 返回用户当前统计
func (s *Service) Stats(ctx context.Context, userID string) domain.Stats {
	return store.Load(ctx, s.store, store.UserKey(userID, store.FieldStats), domain.Stats{}, domain.Stats.Valid)
}

// Unlocked 返回用户已解锁的成就集合
func (s *Service) Unlocked(ctx context.Context, userID string) domain.UnlockedSet {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadUnlocked(ctx, userID)
}

// loadUnlocked 读取解锁集合，未知ID防御性过滤（而不是整体丢弃）
func (s *Service) loadUnlocked(ctx context.Context, userID string) domain.UnlockedSet {
	ids := store.Load(ctx, s.store, store.UserKey(userID, store.FieldUnlocked), []int{}, nil)

	set := make(domain.UnlockedSet, len(ids))
	for _, id := range ids {
		if _, ok := ByID(id); !ok {
			log.Printf("Dropping unknown achievement id from unlocked set: user=%s, id=%d", userID, id)
			continue
		}
		set.Add(id)
	}
	return set
}

// 统计变更入口（由控制器、会话跟踪器和处理器调用）

// AddVideo 视频入队事件
func (s *Service) AddVideo(ctx context.Context, userID string) {
	s.Apply(ctx, userID, func(st *domain.Stats) { st.VideosAdded++ })
}

// ObserveQueueSize 队列长度事件（高水位）
func (s *Service) ObserveQueueSize(ctx context.Context, userID string, n int) {
	s.Apply(ctx, userID, func(st *domain.Stats) { st.ObserveQueueSize(int64(n)) })
}

// AddMessage 聊天消息事件
func (s *Service) AddMessage(ctx context.Context, userID string) {
	s.Apply(ctx, userID, func(st *domain.Stats) { st.MessagesSent++ })
}

// AddWatchSecond 会话tick事件，watch_time精确加1
func (s *Service) AddWatchSecond(ctx context.Context, userID string) {
	s.Apply(ctx, userID, func(st *domain.Stats) { st.WatchTime++ })
}

// AddSession 会话结束事件（仅非零时长的会话）
func (s *Service) AddSession(ctx context.Context, userID string) {
	s.Apply(ctx, userID, func(st *domain.Stats) { st.SessionsPlayed++ })
}

// ConnectDiscord Discord身份接入事件
func (s *Service) ConnectDiscord(ctx context.Context, userID string) {
	s.Apply(ctx, userID, func(st *domain.Stats) { st.DiscordConnections++ })
}
