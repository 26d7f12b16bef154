package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"watchparty-svc/internal/domain"

	"github.com/redis/go-redis/v9"
)

// MessageHandler 消息处理函数
type MessageHandler func(message *domain.PartyMessage, channel string) error

// Subscriber Redis Pub/Sub订阅器
type Subscriber struct {
	redis       *redis.Client
	instanceID  string
	handlers    map[string]MessageHandler // channel pattern -> handler
	handlersMux sync.RWMutex

	// 订阅管理
	pubsub     *redis.PubSub
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// 统计
	stats SubscriberStats

	// 配置
	reconnectInterval    time.Duration
	maxReconnectAttempts int
}

// SubscriberStats 订阅器统计
type SubscriberStats struct {
	TotalReceived     int64 `json:"total_received"`     // 总接收数
	ProcessedMessages int64 `json:"processed_messages"` // 处理成功数
	FailedMessages    int64 `json:"failed_messages"`    // 处理失败数
	DroppedMessages   int64 `json:"dropped_messages"`   // 丢弃消息数（来自自己的实例）
	ReconnectCount    int64 `json:"reconnect_count"`    // 重连次数
}

// SubscriberConfig 订阅器配置
type SubscriberConfig struct {
	InstanceID           string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
}

// DefaultSubscriberConfig 默认配置
func DefaultSubscriberConfig(instanceID string) *SubscriberConfig {
	return &SubscriberConfig{
		InstanceID:           instanceID,
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 10,
	}
}

// NewSubscriber 创建订阅器
func NewSubscriber(redisClient *redis.Client, config *SubscriberConfig) *Subscriber {
	if config == nil {
		config = DefaultSubscriberConfig("default")
	}

	return &Subscriber{
		redis:                redisClient,
		instanceID:           config.InstanceID,
		handlers:             make(map[string]MessageHandler),
		reconnectInterval:    config.ReconnectInterval,
		maxReconnectAttempts: config.MaxReconnectAttempts,
	}
}

// Subscribe 订阅频道（支持通配符模式）
func (s *Subscriber) Subscribe(pattern string, handler MessageHandler) {
	s.handlersMux.Lock()
	defer s.handlersMux.Unlock()

	s.handlers[pattern] = handler
}

// Start 启动订阅器
func (s *Subscriber) Start(ctx context.Context) error {
	s.handlersMux.RLock()
	if len(s.handlers) == 0 {
		s.handlersMux.RUnlock()
		return fmt.Errorf("no handlers registered")
	}

	patterns := make([]string, 0, len(s.handlers))
	for pattern := range s.handlers {
		patterns = append(patterns, pattern)
	}
	s.handlersMux.RUnlock()

	subCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.wg.Add(1)
	go s.subscribeLoop(subCtx, patterns)

	log.Printf("Subscriber started for instance %s with patterns: %v", s.instanceID, patterns)
	return nil
}

// subscribeLoop 订阅循环（自动重连）
func (s *Subscriber) subscribeLoop(ctx context.Context, patterns []string) {
	defer s.wg.Done()

	reconnectAttempts := 0

	for {
		select {
		case <-ctx.Done():
			log.Println("Subscriber shutting down")
			return
		default:
		}

		pubsub := s.redis.PSubscribe(ctx, patterns...)
		s.pubsub = pubsub
		reconnectAttempts = 0

		_ = s.processMessages(ctx, pubsub)

		if err := pubsub.Close(); err != nil {
			log.Printf("Error closing pubsub: %v", err)
		}
		s.pubsub = nil

		select {
		case <-ctx.Done():
			return
		default:
		}

		// 重连逻辑
		reconnectAttempts++
		if s.maxReconnectAttempts > 0 && reconnectAttempts > s.maxReconnectAttempts {
			log.Printf("Max reconnect attempts reached (%d), stopping subscriber", s.maxReconnectAttempts)
			return
		}

		atomic.AddInt64(&s.stats.ReconnectCount, 1)
		log.Printf("Connection lost, reconnecting in %v (attempt %d)...", s.reconnectInterval, reconnectAttempts)

		timer := time.NewTimer(s.reconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// processMessages 处理接收到的消息
func (s *Subscriber) processMessages(ctx context.Context, pubsub *redis.PubSub) error {
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("channel closed")
			}

			if msg == nil {
				continue
			}

			s.handleMessage(msg)
		}
	}
}

// handleMessage 处理单条消息
func (s *Subscriber) handleMessage(msg *redis.Message) {
	atomic.AddInt64(&s.stats.TotalReceived, 1)

	var partyMsg domain.PartyMessage
	if err := json.Unmarshal([]byte(msg.Payload), &partyMsg); err != nil {
		log.Printf("Failed to unmarshal message: %v", err)
		atomic.AddInt64(&s.stats.FailedMessages, 1)
		return
	}

	// 过滤来自自己实例的消息（避免循环）
	if partyMsg.InstanceID == s.instanceID {
		atomic.AddInt64(&s.stats.DroppedMessages, 1)
		return
	}

	s.handlersMux.RLock()
	handler := s.handlers[msg.Pattern]
	s.handlersMux.RUnlock()

	if handler == nil {
		log.Printf("No handler found for pattern: %s", msg.Pattern)
		atomic.AddInt64(&s.stats.FailedMessages, 1)
		return
	}

	if err := handler(&partyMsg, msg.Channel); err != nil {
		log.Printf("Handler error for channel %s: %v", msg.Channel, err)
		atomic.AddInt64(&s.stats.FailedMessages, 1)
		return
	}

	atomic.AddInt64(&s.stats.ProcessedMessages, 1)
}

// Stop 停止订阅器
func (s *Subscriber) Stop() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.wg.Wait()

	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			log.Printf("Error closing pubsub: %v", err)
		}
		s.pubsub = nil
	}

	log.Println("Subscriber stopped")
	return nil
}

// GetStats 获取统计信息
func (s *Subscriber) GetStats() SubscriberStats {
	return SubscriberStats{
		TotalReceived:     atomic.LoadInt64(&s.stats.TotalReceived),
		ProcessedMessages: atomic.LoadInt64(&s.stats.ProcessedMessages),
		FailedMessages:    atomic.LoadInt64(&s.stats.FailedMessages),
		DroppedMessages:   atomic.LoadInt64(&s.stats.DroppedMessages),
		ReconnectCount:    atomic.LoadInt64(&s.stats.ReconnectCount),
	}
}

// GetInstanceID 获取实例ID
func (s *Subscriber) GetInstanceID() string {
	return s.instanceID
}

// IsRunning 检查是否正在运行
func (s *Subscriber) IsRunning() bool {
	return s.pubsub != nil
}
