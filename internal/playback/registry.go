package playback

import (
	"context"
	"log"
	"sync"

	"watchparty-svc/internal/session"
	"watchparty-svc/internal/store"
)

// Recorder 控制器依赖的统计入口合集
type Recorder interface {
	StatsRecorder
	session.Sink
}

// Registry 按用户惰性创建并持有控制器
type Registry struct {
	store   *store.Store
	stats   Recorder
	history *History

	mu          sync.Mutex
	controllers map[string]*Controller
	sink        Sink
}

// NewRegistry 创建控制器注册表
func NewRegistry(st *store.Store, stats Recorder, history *History) *Registry {
	return &Registry{
		store:       st,
		stats:       stats,
		history:     history,
		controllers: make(map[string]*Controller),
	}
}

// SetSink 设置出站消息通道（对已存在和后续创建的控制器都生效）
func (r *Registry) SetSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sink = sink
	for _, c := range r.controllers {
		c.SetSink(sink)
	}
}

// Get 获取用户的控制器，不存在时从持久化状态恢复创建
func (r *Registry) Get(ctx context.Context, userID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[userID]; ok {
		return c
	}

	c := NewController(ctx, userID, r.store, r.stats, r.stats, r.history)
	if r.sink != nil {
		c.SetSink(r.sink)
	}
	r.controllers[userID] = c
	return c
}

// Shutdown 关闭所有控制器（保证每个会话的ticker被释放）
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.Unlock()

	for _, c := range controllers {
		c.Shutdown(ctx)
	}

	log.Printf("Playback registry shut down: controllers=%d", len(controllers))
}
