package playback

import (
	"context"
	"log"
	"slices"
	"sync"

	"watchparty-svc/internal/bridge"
	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/session"
	"watchparty-svc/internal/store"
	"watchparty-svc/internal/validate"
)

// StatsRecorder 入队跟踪事件的接收端（由成就服务实现）
type StatsRecorder interface {
	AddVideo(ctx context.Context, userID string)
	ObserveQueueSize(ctx context.Context, userID string, n int)
}

// Sink 出站消息通道（由WebSocket层实现）
type Sink interface {
	SendCommands(userID string, cmds []domain.PlayerCommand)
	SendSync(userID string, sync domain.RoomSync)
}

// Controller 队列与播放控制器
// 约束: 状态的唯一写入者；所有操作持锁串行执行，读-改-写不与其他写入者交错
type Controller struct {
	userID string

	mu     sync.Mutex
	state  domain.QueueState
	volume float64

	// 对嵌入播放器的信念状态，命令只在它变化时发出
	belief     domain.PlayerState
	lastPlayed string

	store   *store.Store
	stats   StatsRecorder
	tracker *session.Tracker
	history *History
	sink    Sink
}

// NewController 创建控制器并从持久化状态恢复
// 重载恢复: 队列和音量照常恢复，但播放标志强制复位——Running状态只响应
// 新的"开始播放"信号，遗留的会话标记由跟踪器丢弃
func NewController(ctx context.Context, userID string, st *store.Store, stats StatsRecorder, sessionSink session.Sink, history *History) *Controller {
	state := store.Load(ctx, st, store.UserKey(userID, store.FieldQueue), domain.QueueState{CurrentIndex: -1}, domain.QueueState.Valid)
	state.Clamp()
	state.IsPlaying = false

	volume := store.Load(ctx, st, store.UserKey(userID, store.FieldVolume), 1.0, func(v float64) bool {
		return v >= 0 && v <= 1
	})

	c := &Controller{
		userID:  userID,
		state:   state,
		volume:  volume,
		store:   st,
		stats:   stats,
		tracker: session.NewTracker(ctx, userID, st, sessionSink),
		history: history,
	}

	// 初始信念与恢复后的静止状态一致，避免启动时发送多余命令
	c.belief = domain.PlayerState{Locator: state.Current(), IsPlaying: false, Volume: volume}
	return c
}

// SetSink 设置出站消息通道
func (c *Controller) SetSink(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Enqueue 视频入队
// locator不合法时拒绝（状态不变，错误返回给调用方内联展示）；
// 队列原先为空时自动选中第0项并开始播放
func (c *Controller) Enqueue(ctx context.Context, locator string) error {
	if err := validate.Locator(locator); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	wasEmpty := len(c.state.Items) == 0
	c.state.Items = append(c.state.Items, locator)

	c.stats.AddVideo(ctx, c.userID)
	c.stats.ObserveQueueSize(ctx, c.userID, len(c.state.Items))

	if wasEmpty {
		c.state.CurrentIndex = 0
		c.state.IsPlaying = true
	}

	c.commit(ctx)
	return nil
}

// Advance 前进到下一项
// 已在队尾时清除播放标志，下标保持不变（不回绕）
func (c *Controller) Advance(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(ctx)
}

func (c *Controller) advanceLocked(ctx context.Context) {
	if c.state.CurrentIndex+1 < len(c.state.Items) {
		c.state.CurrentIndex++
	} else {
		c.state.IsPlaying = false
	}
	c.commit(ctx)
}

// Retreat 回退到上一项；已在队首时no-op
func (c *Controller) Retreat(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentIndex <= 0 {
		return
	}
	c.state.CurrentIndex--
	c.commit(ctx)
}

// SelectFromHistory 从历史中选播
// locator已在队列中则选中对应下标，否则追加并选中；总是恢复播放
func (c *Controller) SelectFromHistory(ctx context.Context, locator string) error {
	if err := validate.Locator(locator); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	found := -1
	for i, item := range c.state.Items {
		if item == locator {
			found = i
			break
		}
	}

	if found >= 0 {
		c.state.CurrentIndex = found
	} else {
		c.state.Items = append(c.state.Items, locator)
		c.state.CurrentIndex = len(c.state.Items) - 1
		c.stats.ObserveQueueSize(ctx, c.userID, len(c.state.Items))
	}
	c.state.IsPlaying = true

	c.commit(ctx)
	return nil
}

// SetVolume 设置音量，原始输入钳制到[0,1]后持久化
func (c *Controller) SetVolume(ctx context.Context, raw string) float64 {
	v := validate.ClampNumber(raw, 0, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = v
	c.store.Save(ctx, store.UserKey(c.userID, store.FieldVolume), v)
	c.commit(ctx)
	return v
}

// HandlePlayerEvent 处理已通过来源校验的播放器事件
// "播放结束"等同于Advance；未在播放时收到的结束事件是迟到信号，忽略
func (c *Controller) HandlePlayerEvent(ctx context.Context, ev domain.PlayerEvent) {
	if !bridge.Ended(ev) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsPlaying {
		return
	}
	c.advanceLocked(ctx)
}

// ApplyRemote 应用远端的建议性状态更新
// 只应用存在且与当前状态不同的字段；越界下标钳制修正而不是报错
func (c *Controller) ApplyRemote(ctx context.Context, rs domain.RoomSync) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false

	if rs.Queue != nil && !slices.Equal(rs.Queue, c.state.Items) {
		c.state.Items = append([]string(nil), rs.Queue...)
		changed = true
	}
	if rs.Index != nil && *rs.Index != c.state.CurrentIndex {
		c.state.CurrentIndex = *rs.Index
		changed = true
	}
	if rs.PlaybackState != nil {
		switch *rs.PlaybackState {
		case domain.PlaybackStatePlay:
			if !c.state.IsPlaying {
				c.state.IsPlaying = true
				changed = true
			}
		case domain.PlaybackStatePause:
			if c.state.IsPlaying {
				c.state.IsPlaying = false
				changed = true
			}
		case domain.PlaybackStateStop:
			if c.state.IsPlaying || c.state.CurrentIndex != -1 {
				c.state.IsPlaying = false
				c.state.CurrentIndex = -1
				changed = true
			}
		default:
			log.Printf("Ignoring unknown playback state from remote: user=%s, state=%s", c.userID, *rs.PlaybackState)
		}
	}

	if !changed {
		return
	}

	c.state.Clamp()
	c.commit(ctx)
}

// Snapshot 返回当前队列状态和音量
func (c *Controller) Snapshot() (domain.QueueState, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	state.Items = append([]string(nil), c.state.Items...)
	return state, c.volume
}

// SessionRunning 返回观看会话是否进行中
func (c *Controller) SessionRunning() bool {
	return c.tracker.Running()
}

// SyncPayload 构造当前状态的同步载荷
func (c *Controller) SyncPayload() domain.RoomSync {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncPayloadLocked()
}

func (c *Controller) syncPayloadLocked() domain.RoomSync {
	current := c.state.Current()
	playbackState := domain.PlaybackStateStop
	if c.state.CurrentIndex >= 0 {
		if c.state.IsPlaying {
			playbackState = domain.PlaybackStatePlay
		} else {
			playbackState = domain.PlaybackStatePause
		}
	}

	queue := append([]string(nil), c.state.Items...)
	index := c.state.CurrentIndex
	return domain.RoomSync{
		VideoURL:      &current,
		PlaybackState: &playbackState,
		Queue:         queue,
		Index:         &index,
	}
}

// Shutdown 组件卸载：会话必须关闭，防止悬挂的ticker继续写统计
func (c *Controller) Shutdown(ctx context.Context) {
	c.tracker.Stop(ctx)
}

// commit 状态变更的统一出口（调用方必须持锁）
// 持久化队列状态、同步会话跟踪器、按信念差异发送播放器命令并广播同步载荷
func (c *Controller) commit(ctx context.Context) {
	c.state.Clamp()
	c.store.Save(ctx, store.UserKey(c.userID, store.FieldQueue), c.state)

	next := domain.PlayerState{
		Locator:   c.state.Current(),
		IsPlaying: c.state.IsPlaying && c.state.CurrentIndex >= 0,
		Volume:    c.volume,
	}

	// 会话转换跟随播放标志
	if next.IsPlaying && !c.tracker.Running() {
		c.tracker.Start(ctx)
	} else if !next.IsPlaying && c.tracker.Running() {
		c.tracker.Stop(ctx)
	}

	// 首次播放记入历史
	if next.IsPlaying && next.Locator != "" && next.Locator != c.lastPlayed {
		c.history.RecordFirstPlay(ctx, c.userID, next.Locator)
		c.lastPlayed = next.Locator
	}

	cmds := bridge.Diff(c.belief, next)
	c.belief = next

	if c.sink != nil {
		if len(cmds) > 0 {
			c.sink.SendCommands(c.userID, cmds)
		}
		c.sink.SendSync(c.userID, c.syncPayloadLocked())
	}
}
