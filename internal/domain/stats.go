package domain

// StatType 成就统计维度（封闭枚举，新增维度必须同时扩展Value的switch）
type StatType int

const (
	StatDiscordConnection StatType = iota
	StatVideosAdded
	StatMessagesSent
	StatWatchTime
	StatMaxQueueSize
)

// String 返回统计维度的持久化名称
func (t StatType) String() string {
	switch t {
	case StatDiscordConnection:
		return "discord_connections"
	case StatVideosAdded:
		return "videos_added"
	case StatMessagesSent:
		return "messages_sent"
	case StatWatchTime:
		return "watch_time"
	case StatMaxQueueSize:
		return "max_queue_size"
	default:
		return "unknown"
	}
}

// Stats 用户统计计数器
// 约束: 所有计数器 >= 0；watch_time只通过会话跟踪器的秒级tick增加
type Stats struct {
	DiscordConnections int64 `json:"discord_connections"`
	VideosAdded        int64 `json:"videos_added"`
	MessagesSent       int64 `json:"messages_sent"`
	WatchTime          int64 `json:"watch_time"` // 秒
	MaxQueueSize       int64 `json:"max_queue_size"`
	SessionsPlayed     int64 `json:"sessions_played"`
}

// Value 返回指定维度的当前值
func (s Stats) Value(t StatType) int64 {
	switch t {
	case StatDiscordConnection:
		return s.DiscordConnections
	case StatVideosAdded:
		return s.VideosAdded
	case StatMessagesSent:
		return s.MessagesSent
	case StatWatchTime:
		return s.WatchTime
	case StatMaxQueueSize:
		return s.MaxQueueSize
	}
	return 0
}

// Valid 校验持久化读回的统计数据（负数视为损坏）
func (s Stats) Valid() bool {
	return s.DiscordConnections >= 0 &&
		s.VideosAdded >= 0 &&
		s.MessagesSent >= 0 &&
		s.WatchTime >= 0 &&
		s.MaxQueueSize >= 0 &&
		s.SessionsPlayed >= 0
}

// ObserveQueueSize 记录队列长度高水位（只增不减）
func (s *Stats) ObserveQueueSize(n int64) {
	if n > s.MaxQueueSize {
		s.MaxQueueSize = n
	}
}

// Dominates 判断每个维度是否都不小于other（用于单调性验证）
func (s Stats) Dominates(other Stats) bool {
	return s.DiscordConnections >= other.DiscordConnections &&
		s.VideosAdded >= other.VideosAdded &&
		s.MessagesSent >= other.MessagesSent &&
		s.WatchTime >= other.WatchTime &&
		s.MaxQueueSize >= other.MaxQueueSize &&
		s.SessionsPlayed >= other.SessionsPlayed
}
