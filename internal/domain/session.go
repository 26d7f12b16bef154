package domain

import "time"

// WatchSession 进行中的观看会话标记
// 标记本身持久化，使得页面重载后能检测到被中断的会话
type WatchSession struct {
	StartedAt time.Time `json:"started_at"`
}

// Age 返回会话已持续的时长
func (s WatchSession) Age(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}
