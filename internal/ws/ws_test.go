package ws

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// setupTestRedis 创建测试用Redis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestConnectionLimiter(t *testing.T) {
	t.Run("Acquire and Release", func(t *testing.T) {
		limiter := NewConnectionLimiter(3)

		assert.NoError(t, limiter.Acquire())
		assert.NoError(t, limiter.Acquire())
		assert.NoError(t, limiter.Acquire())
		assert.Equal(t, int32(3), limiter.CurrentCount())

		// 第4个连接应该失败
		err := limiter.Acquire()
		assert.Error(t, err)
		assert.Equal(t, ErrConnectionLimitExceeded, err)

		limiter.Release()
		assert.Equal(t, int32(2), limiter.CurrentCount())

		assert.NoError(t, limiter.Acquire())
		assert.Equal(t, int32(3), limiter.CurrentCount())
	})

	t.Run("Available connections", func(t *testing.T) {
		limiter := NewConnectionLimiter(10)

		assert.Equal(t, int32(10), limiter.Available())

		limiter.Acquire()
		assert.Equal(t, int32(9), limiter.Available())

		limiter.Acquire()
		limiter.Acquire()
		assert.Equal(t, int32(7), limiter.Available())
	})

	t.Run("Default max connections", func(t *testing.T) {
		limiter := NewConnectionLimiter(0)
		assert.Equal(t, int32(DefaultMaxConnections), limiter.MaxConnections())

		limiter = NewConnectionLimiter(-1)
		assert.Equal(t, int32(DefaultMaxConnections), limiter.MaxConnections())
	})

	t.Run("Double release is safe", func(t *testing.T) {
		limiter := NewConnectionLimiter(2)
		limiter.Acquire()
		limiter.Release()
		limiter.Release()
		assert.Equal(t, int32(2), limiter.Available())
	})
}

func TestRoom(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(10, client, "test-instance")

	t.Run("Join and Leave", func(t *testing.T) {
		room := NewRoom()

		conn1 := &Connection{ID: "conn1", UserID: "user1", isActive: 1, manager: manager}
		conn2 := &Connection{ID: "conn2", UserID: "user1", isActive: 1, manager: manager}
		conn3 := &Connection{ID: "conn3", UserID: "user2", isActive: 1, manager: manager}

		room.Join("user1", conn1)
		room.Join("user1", conn2)
		room.Join("user2", conn3)

		assert.Equal(t, 2, room.GetUserConnectionCount("user1"))
		assert.Equal(t, 1, room.GetUserConnectionCount("user2"))
		assert.True(t, room.IsUserOnline("user1"))
		assert.True(t, room.IsUserOnline("user2"))

		room.Leave("user1", "conn1")
		assert.Equal(t, 1, room.GetUserConnectionCount("user1"))

		room.Leave("user1", "conn2")
		assert.Equal(t, 0, room.GetUserConnectionCount("user1"))
		assert.False(t, room.IsUserOnline("user1"))
	})

	t.Run("Broadcast reaches every connection", func(t *testing.T) {
		room := NewRoom()

		conn1 := &Connection{ID: "c1", UserID: "user1", isActive: 1, send: make(chan []byte, 4), closeChan: make(chan struct{}), manager: manager}
		conn2 := &Connection{ID: "c2", UserID: "user1", isActive: 1, send: make(chan []byte, 4), closeChan: make(chan struct{}), manager: manager}

		room.Join("user1", conn1)
		room.Join("user1", conn2)

		sent := room.Broadcast("user1", []byte(`{"type":"queue.sync"}`))
		assert.Equal(t, 2, sent)
		assert.Len(t, conn1.send, 1)
		assert.Len(t, conn2.send, 1)
	})

	t.Run("Broadcast to absent user sends nothing", func(t *testing.T) {
		room := NewRoom()
		assert.Equal(t, 0, room.Broadcast("ghost", []byte("x")))
	})

	t.Run("Inactive connections excluded from counts", func(t *testing.T) {
		room := NewRoom()

		active := &Connection{ID: "a", UserID: "user1", isActive: 1, manager: manager}
		dead := &Connection{ID: "d", UserID: "user1", isActive: 0, manager: manager}

		room.Join("user1", active)
		room.Join("user1", dead)

		assert.Equal(t, 1, room.GetUserConnectionCount("user1"))
		assert.Equal(t, []string{"user1"}, room.GetOnlineUsers())
	})
}
