package domain

import "time"

// QueueState 播放队列的持久化状态
// 约束: CurrentIndex == -1 表示未选中，否则必须是合法下标
type QueueState struct {
	Items        []string `json:"items"`
	CurrentIndex int      `json:"current_index"`
	IsPlaying    bool     `json:"is_playing"`
}

// Valid 校验持久化读回的队列状态
func (q QueueState) Valid() bool {
	if q.CurrentIndex < -1 || q.CurrentIndex >= len(q.Items) {
		return false
	}
	return true
}

// Clamp 修正越界下标（外部替换队列后可能失效）
func (q *QueueState) Clamp() {
	if len(q.Items) == 0 {
		q.CurrentIndex = -1
		q.IsPlaying = false
		return
	}
	if q.CurrentIndex >= len(q.Items) {
		q.CurrentIndex = len(q.Items) - 1
	}
	if q.CurrentIndex < -1 {
		q.CurrentIndex = -1
	}
	if q.CurrentIndex == -1 {
		q.IsPlaying = false
	}
}

// Current 返回当前选中的视频地址，未选中返回空串
func (q QueueState) Current() string {
	if q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Items) {
		return ""
	}
	return q.Items[q.CurrentIndex]
}

// HistoryEntry 播放历史条目
// 约束: 每个SourceLocator首次播放时追加一次，按精确匹配去重
type HistoryEntry struct {
	DisplayName   string    `json:"display_name"`
	SourceLocator string    `json:"source_locator"`
	Kind          string    `json:"kind"`
	InsertedAt    time.Time `json:"inserted_at"`
}

// PlayerState 控制器对嵌入播放器的信念状态
// 播放器内部状态从不直接读取，只通过已发命令和收到的事件推断
type PlayerState struct {
	Locator   string  `json:"locator"`
	IsPlaying bool    `json:"is_playing"`
	Volume    float64 `json:"volume"` // [0,1]
}
