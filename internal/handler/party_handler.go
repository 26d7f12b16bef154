package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/playback"

	"github.com/gin-gonic/gin"
)

// PartyHandler 队列与播放HTTP处理器
type PartyHandler struct {
	registry *playback.Registry
	history  *playback.History
	hub      *Hub
}

// NewPartyHandler 创建处理器
func NewPartyHandler(registry *playback.Registry, history *playback.History, hub *Hub) *PartyHandler {
	return &PartyHandler{
		registry: registry,
		history:  history,
		hub:      hub,
	}
}

// currentUserID 从JWT中间件取用户ID
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// GetQueue 返回当前队列状态和音量
func (h *PartyHandler) GetQueue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	state, volume := ctrl.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"queue":      state.Items,
		"index":      state.CurrentIndex,
		"is_playing": state.IsPlaying,
		"volume":     volume,
	})
}

// AddToQueue 视频入队
// 校验失败返回400，错误信息由客户端内联展示
func (h *PartyHandler) AddToQueue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	if err := ctrl.Enqueue(c.Request.Context(), req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": userFacing(err)})
		return
	}

	state, _ := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"queue":      state.Items,
		"index":      state.CurrentIndex,
		"is_playing": state.IsPlaying,
	})
}

// Advance 前进到下一项
func (h *PartyHandler) Advance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	ctrl.Advance(c.Request.Context())

	state, _ := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{"index": state.CurrentIndex, "is_playing": state.IsPlaying})
}

// Retreat 回退到上一项
func (h *PartyHandler) Retreat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	ctrl.Retreat(c.Request.Context())

	state, _ := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{"index": state.CurrentIndex, "is_playing": state.IsPlaying})
}

// SelectFromHistory 从历史中选播
func (h *PartyHandler) SelectFromHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	if err := ctrl.SelectFromHistory(c.Request.Context(), req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": userFacing(err)})
		return
	}

	state, _ := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{"index": state.CurrentIndex, "is_playing": state.IsPlaying})
}

// GetHistory 返回播放历史，最新的在前
func (h *PartyHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries := h.history.List(c.Request.Context(), userID, limit)
	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"count":   len(entries),
	})
}

// SetVolume 设置音量
// 输入按原始字符串处理：数字钳制到[0,1]，无法解析的输入落到0
func (h *PartyHandler) SetVolume(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Volume interface{} `json:"volume"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume is required"})
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	v := ctrl.SetVolume(c.Request.Context(), fmt.Sprint(req.Volume))

	c.JSON(http.StatusOK, gin.H{"volume": v})
}

// PostPlayerEvent 播放器事件的HTTP入口（备用通道，主通道是WebSocket）
// 上报来源取自请求的Origin头；校验和丢弃在bridge层完成
func (h *PartyHandler) PostPlayerEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	origin := c.GetHeader("Origin")
	h.hub.OnPlayerEvent(c.Request.Context(), userID, origin, payload)

	// 丢弃与处理对客户端不可区分
	c.Status(http.StatusNoContent)
}

// GetSession 返回观看会话状态
func (h *PartyHandler) GetSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctrl := h.registry.Get(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"running": ctrl.SessionRunning()})
}

// userFacing 校验错误转为给用户内联展示的文案
func userFacing(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidLocator):
		return "That doesn't look like a playable video URL"
	case errors.Is(err, domain.ErrOversizedInput):
		return "Input is too long"
	case errors.Is(err, domain.ErrEmptyMessage):
		return "Message is empty"
	default:
		return err.Error()
	}
}
