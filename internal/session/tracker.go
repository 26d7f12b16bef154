package session

import (
	"context"
	"log"
	"sync"
	"time"

	"watchparty-svc/internal/store"
)

// DefaultTickInterval 观看时长累计的tick周期
const DefaultTickInterval = time.Second

// Sink 统计接收端（由成就服务实现）
type Sink interface {
	AddWatchSecond(ctx context.Context, userID string)
	AddSession(ctx context.Context, userID string)
}

// Tracker 观看会话跟踪器
// 状态: Idle / Running。同一时刻最多一个会话
// 约束: watch_time只按tick累加，关闭会话绝不补加时长（避免重复计数）；
// 会话关闭或组件卸载时必须停掉ticker，防止悬挂的ticker继续写统计
type Tracker struct {
	userID   string
	store    *store.Store
	sink     Sink
	interval time.Duration

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	ticks     int64
	stopChan  chan struct{}
	stopOnce  *sync.Once
}

// NewTracker 创建会话跟踪器，并处理上一次运行遗留的会话标记
// 恢复策略: 丢弃。标记只证明上一次运行在播放中死掉了；按墙钟补记时长会把
// 没人观看的时间算进去。已经tick过的watch_time在统计里不会丢失
func NewTracker(ctx context.Context, userID string, st *store.Store, sink Sink) *Tracker {
	t := &Tracker{
		userID:   userID,
		store:    st,
		sink:     sink,
		interval: DefaultTickInterval,
	}

	markerKey := store.UserKey(userID, store.FieldSessionStart)
	if stale := store.Load(ctx, st, markerKey, int64(0), nil); stale > 0 {
		log.Printf("Discarding interrupted watch session: user=%s, started_at=%d", userID, stale)
		st.Delete(ctx, markerKey)
	}

	return t
}

// SetInterval 覆盖tick周期（测试用）
func (t *Tracker) SetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
}

// Running 返回会话是否进行中
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Start 进入Running状态并立即持久化会话标记
// 只响应新的"开始播放"信号；已在Running时为幂等no-op
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.startedAt = time.Now()
	t.ticks = 0
	t.stopChan = make(chan struct{})
	t.stopOnce = &sync.Once{}
	stop := t.stopChan
	interval := t.interval
	t.mu.Unlock()

	t.store.Save(ctx, store.UserKey(t.userID, store.FieldSessionStart), t.startedAt.UnixMilli())

	go t.loop(stop, interval)

	log.Printf("Watch session started: user=%s", t.userID)
}

// Stop 回到Idle状态
// 仅当会话有非零时长时sessions_played加1；已累计的watch_time不再补加
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	ticks := t.ticks
	once := t.stopOnce
	stop := t.stopChan
	t.mu.Unlock()

	once.Do(func() { close(stop) })

	t.store.Delete(ctx, store.UserKey(t.userID, store.FieldSessionStart))

	if ticks > 0 {
		t.sink.AddSession(ctx, t.userID)
	}

	log.Printf("Watch session stopped: user=%s, ticks=%d", t.userID, ticks)
}

// loop tick循环，stop关闭时保证ticker被释放
func (t *Tracker) loop(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick(context.Background())
		}
	}
}

// tick 单次累计：watch_time精确加1并由sink持久化
func (t *Tracker) tick(ctx context.Context) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.ticks++
	t.mu.Unlock()

	t.sink.AddWatchSecond(ctx, t.userID)
}
