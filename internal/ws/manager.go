package ws

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/pubsub"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Manager WebSocket连接管理器
type Manager struct {
	// 连接池
	connections map[string]*Connection
	mu          sync.RWMutex

	// 房间管理
	room *Room

	// 连接限制器
	limiter *ConnectionLimiter

	// 入站消息接收端
	sink   EventSink
	sinkMu sync.RWMutex

	// Redis Pub/Sub
	publisher  *pubsub.Publisher
	subscriber *pubsub.Subscriber
	instanceID string

	// 注册/注销通道
	register   chan *Connection
	unregister chan *Connection

	// 广播通道
	broadcast chan *domain.PartyMessage

	// 统计
	stats ManagerStats
}

// ManagerStats 管理器统计信息
type ManagerStats struct {
	TotalRegistered    int64
	TotalUnregistered  int64
	CurrentConnections int64
}

// NewManager 创建连接管理器
func NewManager(maxConnections int, redisClient *redis.Client, instanceID string) *Manager {
	publisher := pubsub.NewPublisher(redisClient, instanceID)
	subscriberConfig := pubsub.DefaultSubscriberConfig(instanceID)
	subscriber := pubsub.NewSubscriber(redisClient, subscriberConfig)

	m := &Manager{
		connections: make(map[string]*Connection),
		room:        NewRoom(),
		limiter:     NewConnectionLimiter(maxConnections),
		publisher:   publisher,
		subscriber:  subscriber,
		instanceID:  instanceID,
		register:    make(chan *Connection, 256),
		unregister:  make(chan *Connection, 256),
		broadcast:   make(chan *domain.PartyMessage, 1024),
	}

	// 订阅用户消息频道（pattern: wp:user:*）
	subscriber.Subscribe(pubsub.UserChannelPattern, m.handlePubSubMessage)

	// 订阅广播频道
	subscriber.Subscribe(pubsub.BroadcastChannel, m.handlePubSubBroadcast)

	return m
}

// SetSink 设置入站消息接收端
func (m *Manager) SetSink(sink EventSink) {
	m.sinkMu.Lock()
	m.sink = sink
	m.sinkMu.Unlock()
}

// Sink 返回入站消息接收端
func (m *Manager) Sink() EventSink {
	m.sinkMu.RLock()
	defer m.sinkMu.RUnlock()
	return m.sink
}

// Start 启动管理器
func (m *Manager) Start(ctx context.Context) {
	log.Println("WebSocket manager started")

	if err := m.subscriber.Start(ctx); err != nil {
		log.Printf("Failed to start subscriber: %v", err)
	} else {
		log.Printf("Subscriber started for instance: %s", m.instanceID)
	}

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return

		case conn := <-m.register:
			m.handleRegister(conn)

		case conn := <-m.unregister:
			m.handleUnregister(conn)

		case message := <-m.broadcast:
			m.handleBroadcast(message)
		}
	}
}

// Register 注册新连接
func (m *Manager) Register(conn *Connection) {
	m.register <- conn
}

// Unregister 注销连接
func (m *Manager) Unregister(conn *Connection) {
	m.unregister <- conn
}

// Broadcast 广播消息到指定用户
func (m *Manager) Broadcast(message *domain.PartyMessage) {
	select {
	case m.broadcast <- message:
	default:
		log.Printf("Broadcast channel full, message dropped: type=%s", message.Type)
	}
}

// handleRegister 处理连接注册
func (m *Manager) handleRegister(conn *Connection) {
	m.mu.Lock()
	m.connections[conn.ID] = conn
	m.mu.Unlock()

	m.room.Join(conn.UserID, conn)

	atomic.AddInt64(&m.stats.TotalRegistered, 1)
	atomic.AddInt64(&m.stats.CurrentConnections, 1)

	log.Printf("Connection registered: id=%s, user=%s, total=%d",
		conn.ID, conn.UserID, atomic.LoadInt64(&m.stats.CurrentConnections))
}

// handleUnregister 处理连接注销
func (m *Manager) handleUnregister(conn *Connection) {
	m.mu.Lock()
	if _, exists := m.connections[conn.ID]; exists {
		delete(m.connections, conn.ID)
	}
	m.mu.Unlock()

	m.room.Leave(conn.UserID, conn.ID)
	m.limiter.Release()

	if conn.IsActive() {
		conn.Close("unregistered")
	}

	atomic.AddInt64(&m.stats.TotalUnregistered, 1)
	atomic.AddInt64(&m.stats.CurrentConnections, -1)
}

// handleBroadcast 处理广播消息
func (m *Manager) handleBroadcast(message *domain.PartyMessage) {
	if message.UserID == "" {
		log.Printf("Broadcast message missing user_id: type=%s", message.Type)
		return
	}

	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	// 用户在本实例在线：直接广播到本地连接
	if m.room.IsUserOnline(message.UserID) {
		m.room.BroadcastJSON(message.UserID, message)
	}

	// 发布到Redis Pub/Sub（跨实例广播，用户的其他标签页可能连在别的实例）
	ctx := context.Background()
	if err := m.publisher.PublishToUser(ctx, message.UserID, message); err != nil {
		log.Printf("Failed to publish to Redis: user=%s, type=%s, error=%v",
			message.UserID, message.Type, err)
	}
}

// handlePubSubMessage 处理Pub/Sub用户消息（订阅器已过滤本实例发出的消息）
func (m *Manager) handlePubSubMessage(message *domain.PartyMessage, channel string) error {
	if m.room.IsUserOnline(message.UserID) {
		m.room.BroadcastJSON(message.UserID, message)
	}
	return nil
}

// handlePubSubBroadcast 处理全局广播消息
func (m *Manager) handlePubSubBroadcast(message *domain.PartyMessage, channel string) error {
	for _, userID := range m.room.GetOnlineUsers() {
		m.room.BroadcastJSON(userID, message)
	}
	return nil
}

// BroadcastToAll 广播消息给所有在线用户
func (m *Manager) BroadcastToAll(message *domain.PartyMessage) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	// 本地广播
	onlineUsers := m.room.GetOnlineUsers()
	for _, userID := range onlineUsers {
		m.room.BroadcastJSON(userID, message)
	}

	// 发布到Redis广播频道
	ctx := context.Background()
	if err := m.publisher.PublishBroadcast(ctx, message); err != nil {
		log.Printf("Failed to publish broadcast: error=%v", err)
	}
}

// IsUserOnline 检查用户是否在线
func (m *Manager) IsUserOnline(userID string) bool {
	return m.room.IsUserOnline(userID)
}

// GetOnlineUsers 获取所有在线用户
func (m *Manager) GetOnlineUsers() []string {
	return m.room.GetOnlineUsers()
}

// GetLimiter 返回连接限制器
func (m *Manager) GetLimiter() *ConnectionLimiter {
	return m.limiter
}

// GetRoom 返回房间管理器
func (m *Manager) GetRoom() *Room {
	return m.room
}

// GetInstanceID 返回实例ID
func (m *Manager) GetInstanceID() string {
	return m.instanceID
}

// GetStats 获取统计信息
func (m *Manager) GetStats() map[string]interface{} {
	pubStats := m.publisher.GetStats()
	subStats := m.subscriber.GetStats()

	return map[string]interface{}{
		"total_registered":    atomic.LoadInt64(&m.stats.TotalRegistered),
		"total_unregistered":  atomic.LoadInt64(&m.stats.TotalUnregistered),
		"current_connections": atomic.LoadInt64(&m.stats.CurrentConnections),
		"max_connections":     m.limiter.MaxConnections(),
		"instance_id":         m.instanceID,
		"pubsub": map[string]interface{}{
			"published":       pubStats.TotalPublished,
			"publish_failed":  pubStats.FailedPublished,
			"received":        subStats.TotalReceived,
			"processed":       subStats.ProcessedMessages,
			"failed":          subStats.FailedMessages,
			"reconnect_count": subStats.ReconnectCount,
		},
	}
}

// shutdown 关闭所有连接
func (m *Manager) shutdown() {
	log.Println("Shutting down WebSocket manager...")

	if err := m.subscriber.Stop(); err != nil {
		log.Printf("Error stopping subscriber: %v", err)
	}

	if err := m.publisher.Close(); err != nil {
		log.Printf("Error closing publisher: %v", err)
	}

	m.mu.Lock()
	connections := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		connections = append(connections, conn)
	}
	m.mu.Unlock()

	for _, conn := range connections {
		conn.Close("server shutdown")
	}

	log.Printf("WebSocket manager shutdown complete, closed %d connections", len(connections))
}
