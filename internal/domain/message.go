package domain

import "time"

// MessageType 消息类型
type MessageType string

const (
	MessageTypeQueueSync   MessageType = "queue.sync"
	MessageTypeChat        MessageType = "chat.message"
	MessageTypePlayerEvent MessageType = "player.event"
	MessageTypePlayerCmd   MessageType = "player.command"
	MessageTypeUnlocked    MessageType = "achievement.unlocked"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
)

// PartyMessage WebSocket同步消息
type PartyMessage struct {
	ID         string                 `json:"id"`                    // 消息ID
	Type       MessageType            `json:"type"`                  // 消息类型
	UserID     string                 `json:"user_id"`               // 目标用户ID
	Data       map[string]interface{} `json:"data"`                  // 消息数据
	Timestamp  time.Time              `json:"timestamp"`             // 时间戳
	InstanceID string                 `json:"instance_id,omitempty"` // 发送实例ID（用于Pub/Sub）
}

// RoomSync 队列/播放状态的同步载荷
// 入站时作为建议性更新：只应用存在且与当前状态不同的字段
type RoomSync struct {
	VideoURL      *string  `json:"videoUrl,omitempty"`
	PlaybackState *string  `json:"playbackState,omitempty"` // play|pause|stop
	Queue         []string `json:"queue,omitempty"`
	Index         *int     `json:"index,omitempty"`
}

// 播放状态取值
const (
	PlaybackStatePlay  = "play"
	PlaybackStatePause = "pause"
	PlaybackStateStop  = "stop"
)

// PlayerCommand 发往嵌入播放器的出站命令
type PlayerCommand struct {
	Event string        `json:"event"` // 固定为"command"
	Func  string        `json:"func"`
	Args  []interface{} `json:"args"`
}

// 播放器命令函数名
const (
	PlayerFuncPlay      = "playVideo"
	PlayerFuncPause     = "pauseVideo"
	PlayerFuncStop      = "stopVideo"
	PlayerFuncSetVolume = "setVolume"
)

// PlayerEvent 嵌入播放器的入站事件（已通过来源校验）
type PlayerEvent struct {
	Event string `json:"event"`
	Info  int    `json:"info"`
}

// PlayerEventStateChange 播放器状态变更事件名
const PlayerEventStateChange = "onStateChange"

// PlayerInfoEnded onStateChange中表示"播放结束"的info哨兵值
const PlayerInfoEnded = 0

// ChatMessage 聊天消息载荷
type ChatMessage struct {
	Username string    `json:"username"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}
