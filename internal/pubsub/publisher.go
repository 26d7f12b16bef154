package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"watchparty-svc/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	// 频道命名规范
	userChannelPrefix = "wp:user:" // 用户专用频道: wp:user:{userID}

	// UserChannelPattern 用户频道订阅模式
	UserChannelPattern = "wp:user:*"
	// BroadcastChannel 全局广播频道
	BroadcastChannel = "wp:broadcast"
)

// Publisher Redis Pub/Sub发布器
type Publisher struct {
	redis      *redis.Client
	instanceID string // 实例ID，防止接收自己发布的消息
	stats      PublisherStats
}

// PublisherStats 发布器统计
type PublisherStats struct {
	TotalPublished     int64 `json:"total_published"`     // 总发布数
	UserPublished      int64 `json:"user_published"`      // 用户频道发布数
	BroadcastPublished int64 `json:"broadcast_published"` // 广播频道发布数
	FailedPublished    int64 `json:"failed_published"`    // 发布失败数
}

// NewPublisher 创建发布器
func NewPublisher(redisClient *redis.Client, instanceID string) *Publisher {
	return &Publisher{
		redis:      redisClient,
		instanceID: instanceID,
	}
}

// PublishToUser 发布消息到指定用户频道
func (p *Publisher) PublishToUser(ctx context.Context, userID string, message *domain.PartyMessage) error {
	// 添加实例ID，防止循环
	message.InstanceID = p.instanceID

	msgBytes, err := json.Marshal(message)
	if err != nil {
		atomic.AddInt64(&p.stats.FailedPublished, 1)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	channel := UserChannel(userID)
	if err := p.redis.Publish(ctx, channel, msgBytes).Err(); err != nil {
		atomic.AddInt64(&p.stats.FailedPublished, 1)
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	atomic.AddInt64(&p.stats.TotalPublished, 1)
	atomic.AddInt64(&p.stats.UserPublished, 1)
	return nil
}

// PublishBroadcast 发布全局广播消息
func (p *Publisher) PublishBroadcast(ctx context.Context, message *domain.PartyMessage) error {
	message.InstanceID = p.instanceID

	msgBytes, err := json.Marshal(message)
	if err != nil {
		atomic.AddInt64(&p.stats.FailedPublished, 1)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.redis.Publish(ctx, BroadcastChannel, msgBytes).Err(); err != nil {
		atomic.AddInt64(&p.stats.FailedPublished, 1)
		return fmt.Errorf("failed to publish broadcast: %w", err)
	}

	atomic.AddInt64(&p.stats.TotalPublished, 1)
	atomic.AddInt64(&p.stats.BroadcastPublished, 1)
	return nil
}

// GetStats 获取统计信息
func (p *Publisher) GetStats() PublisherStats {
	return PublisherStats{
		TotalPublished:     atomic.LoadInt64(&p.stats.TotalPublished),
		UserPublished:      atomic.LoadInt64(&p.stats.UserPublished),
		BroadcastPublished: atomic.LoadInt64(&p.stats.BroadcastPublished),
		FailedPublished:    atomic.LoadInt64(&p.stats.FailedPublished),
	}
}

// UserChannel 获取用户频道名
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// Ping 测试Redis连接
func (p *Publisher) Ping(ctx context.Context) error {
	return p.redis.Ping(ctx).Err()
}

// Close 关闭发布器（目前无需特殊清理）
func (p *Publisher) Close() error {
	log.Println("Publisher closed")
	return nil
}

// GetInstanceID 获取实例ID
func (p *Publisher) GetInstanceID() string {
	return p.instanceID
}
