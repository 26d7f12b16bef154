package handler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"watchparty-svc/internal/achievement"
	"watchparty-svc/internal/bridge"
	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/playback"
	"watchparty-svc/internal/store"
	"watchparty-svc/internal/validate"
	"watchparty-svc/internal/ws"

	"github.com/google/uuid"
)

// Hub 消息枢纽：入站客户端消息路由到各服务，出站状态变更回播给用户
// 同时实现ws.EventSink、playback.Sink和achievement.Notifier
type Hub struct {
	manager      *ws.Manager
	registry     *playback.Registry
	achievements *achievement.Service
	decoder      *bridge.Decoder
	store        *store.Store
}

// NewHub 创建消息枢纽并完成双向接线
func NewHub(manager *ws.Manager, registry *playback.Registry, achievements *achievement.Service, decoder *bridge.Decoder, st *store.Store) *Hub {
	h := &Hub{
		manager:      manager,
		registry:     registry,
		achievements: achievements,
		decoder:      decoder,
		store:        st,
	}

	manager.SetSink(h)
	registry.SetSink(h)
	achievements.SetNotifier(h)
	return h
}

// OnChat 聊天消息：校验后计入统计并回播给用户的所有连接
func (h *Hub) OnChat(ctx context.Context, userID, text string) {
	if err := validate.ChatText(text); err != nil {
		log.Printf("Rejected chat message: user=%s, error=%v", userID, err)
		return
	}

	h.achievements.AddMessage(ctx, userID)

	username := store.Load(ctx, h.store, store.UserKey(userID, store.FieldUsername), "anonymous", nil)
	chat := domain.ChatMessage{
		Username: username,
		Text:     text,
		SentAt:   time.Now(),
	}

	h.broadcast(userID, domain.MessageTypeChat, map[string]interface{}{
		"username": chat.Username,
		"text":     chat.Text,
		"sent_at":  chat.SentAt,
	})
}

// OnPlayerEvent 客户端转发的嵌入播放器消息
// 来源不在白名单或载荷不合法时在bridge层静默丢弃
func (h *Hub) OnPlayerEvent(ctx context.Context, userID, origin string, payload []byte) {
	ev, ok := h.decoder.Decode(origin, payload)
	if !ok {
		return
	}
	h.registry.Get(ctx, userID).HandlePlayerEvent(ctx, ev)
}

// OnRemoteSync 远端的建议性队列/播放状态更新
func (h *Hub) OnRemoteSync(ctx context.Context, userID string, rs domain.RoomSync) {
	h.registry.Get(ctx, userID).ApplyRemote(ctx, rs)
}

// SendCommands 发送播放器命令给用户的所有连接
func (h *Hub) SendCommands(userID string, cmds []domain.PlayerCommand) {
	h.broadcast(userID, domain.MessageTypePlayerCmd, map[string]interface{}{
		"commands": cmds,
	})
}

// SendSync 发送队列/播放状态同步载荷
func (h *Hub) SendSync(userID string, sync domain.RoomSync) {
	h.broadcast(userID, domain.MessageTypeQueueSync, toMap(sync))
}

// NotifyUnlocks 成就解锁通知
func (h *Hub) NotifyUnlocks(userID string, unlocked []domain.Achievement) {
	h.broadcast(userID, domain.MessageTypeUnlocked, map[string]interface{}{
		"achievements": unlocked,
	})
}

// broadcast 构造消息并投递（本地房间 + 跨实例Pub/Sub）
func (h *Hub) broadcast(userID string, msgType domain.MessageType, data map[string]interface{}) {
	h.manager.Broadcast(&domain.PartyMessage{
		ID:        uuid.New().String(),
		Type:      msgType,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// toMap 结构体转PartyMessage.Data
func toMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
