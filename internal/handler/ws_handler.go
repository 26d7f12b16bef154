package handler

import (
	"log"
	"net/http"

	"watchparty-svc/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 浏览器客户端托管域不固定；身份由JWT保证
		return true
	},
}

// WSHandler WebSocket处理器
type WSHandler struct {
	manager *ws.Manager
}

// NewWSHandler 创建WebSocket处理器
func NewWSHandler(manager *ws.Manager) *WSHandler {
	return &WSHandler{
		manager: manager,
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// 从JWT中间件获取用户ID
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	// 检查连接限制
	if err := h.manager.GetLimiter().Acquire(); err != nil {
		log.Printf("Connection limit exceeded: user=%s", userIDStr)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "connection limit exceeded",
			"available": h.manager.GetLimiter().Available(),
		})
		return
	}

	// 升级到WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		h.manager.GetLimiter().Release()
		return
	}

	connID := uuid.New().String()
	wsConn := ws.NewConnection(connID, userIDStr, conn, h.manager)

	h.manager.Register(wsConn)

	// 启动读写协程；泵的生命周期跟随连接而不是握手请求的context
	go wsConn.ReadPump()
	go wsConn.WritePump()

	log.Printf("WebSocket connection established: id=%s, user=%s", connID, userIDStr)
}

// GetStats 获取统计信息
func (h *WSHandler) GetStats(c *gin.Context) {
	stats := h.manager.GetStats()
	c.JSON(http.StatusOK, stats)
}

// GetOnlineUsers 获取在线用户列表
func (h *WSHandler) GetOnlineUsers(c *gin.Context) {
	users := h.manager.GetOnlineUsers()
	c.JSON(http.StatusOK, gin.H{
		"online_users": users,
		"count":        len(users),
	})
}

// CheckUserOnline 检查用户是否在线
func (h *WSHandler) CheckUserOnline(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	isOnline := h.manager.IsUserOnline(userID)
	connectionCount := h.manager.GetRoom().GetUserConnectionCount(userID)

	c.JSON(http.StatusOK, gin.H{
		"user_id":          userID,
		"online":           isOnline,
		"connection_count": connectionCount,
	})
}
