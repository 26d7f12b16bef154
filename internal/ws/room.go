package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Room 房间管理器（按UserID分组连接，同一用户的多个标签页共享一个房间）
type Room struct {
	// userID -> connections
	rooms map[string]map[string]*Connection
	mu    sync.RWMutex
}

// NewRoom 创建房间管理器
func NewRoom() *Room {
	return &Room{
		rooms: make(map[string]map[string]*Connection),
	}
}

// Join 用户加入房间（添加连接）
func (r *Room) Join(userID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[userID]; !exists {
		r.rooms[userID] = make(map[string]*Connection)
	}

	r.rooms[userID][conn.ID] = conn
	log.Printf("User joined room: user=%s, conn=%s, total_conns=%d",
		userID, conn.ID, len(r.rooms[userID]))
}

// Leave 用户离开房间（移除连接）
func (r *Room) Leave(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, exists := r.rooms[userID]; exists {
		delete(conns, connID)

		// 如果该用户没有任何连接了，删除整个房间
		if len(conns) == 0 {
			delete(r.rooms, userID)
			log.Printf("Room removed: user=%s (no connections left)", userID)
		}
	}
}

// Broadcast 向指定用户的所有连接广播消息
func (r *Room) Broadcast(userID string, message []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, exists := r.rooms[userID]
	if !exists {
		return 0
	}

	sentCount := 0
	for _, conn := range conns {
		if conn.Send(message) {
			sentCount++
		}
	}

	return sentCount
}

// BroadcastJSON 向指定用户的所有连接广播JSON消息
func (r *Room) BroadcastJSON(userID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.Broadcast(userID, data)
	return nil
}

// GetUserConnectionCount 获取用户的活跃连接数
func (r *Room) GetUserConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if conns, exists := r.rooms[userID]; exists {
		count := 0
		for _, conn := range conns {
			if conn.IsActive() {
				count++
			}
		}
		return count
	}

	return 0
}

// IsUserOnline 检查用户是否在线
func (r *Room) IsUserOnline(userID string) bool {
	return r.GetUserConnectionCount(userID) > 0
}

// GetOnlineUsers 获取所有在线用户列表
func (r *Room) GetOnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.rooms))
	for userID, conns := range r.rooms {
		for _, conn := range conns {
			if conn.IsActive() {
				users = append(users, userID)
				break
			}
		}
	}

	return users
}
