package achievement

import "watchparty-svc/internal/domain"

// Catalog 成就目录（编译期固定，按ID升序）
// 约束: ID永不复用、永不重排，解锁状态按ID持久化
var Catalog = []domain.Achievement{
	{
		ID:          1,
		Name:        "Party Starter",
		Description: "Connect your Discord account",
		Icon:        "🎉",
		Type:        domain.StatDiscordConnection,
		TypeName:    "discord_connection",
		Target:      1,
	},
	{
		ID:          2,
		Name:        "First Pick",
		Description: "Add your first video to the queue",
		Icon:        "🎬",
		Type:        domain.StatVideosAdded,
		TypeName:    "videos_added",
		Target:      1,
	},
	{
		ID:          3,
		Name:        "Ice Breaker",
		Description: "Send 10 chat messages",
		Icon:        "💬",
		Type:        domain.StatMessagesSent,
		TypeName:    "messages_sent",
		Target:      10,
	},
	{
		ID:          4,
		Name:        "Hour Hero",
		Description: "Watch a full hour together",
		Icon:        "⏰",
		Type:        domain.StatWatchTime,
		TypeName:    "watch_time",
		Target:      3600,
	},
	{
		ID:          5,
		Name:        "Playlist Builder",
		Description: "Add 10 videos to the queue",
		Icon:        "📼",
		Type:        domain.StatVideosAdded,
		TypeName:    "videos_added",
		Target:      10,
	},
	{
		ID:          6,
		Name:        "Chat Regular",
		Description: "Send 100 chat messages",
		Icon:        "🗣️",
		Type:        domain.StatMessagesSent,
		TypeName:    "messages_sent",
		Target:      100,
	},
	{
		ID:          7,
		Name:        "Stacked Queue",
		Description: "Have 5 videos queued at once",
		Icon:        "🧱",
		Type:        domain.StatMaxQueueSize,
		TypeName:    "max_queue_size",
		Target:      5,
	},
	{
		ID:          8,
		Name:        "Binge Watcher",
		Description: "Watch 6 hours together",
		Icon:        "🛋️",
		Type:        domain.StatWatchTime,
		TypeName:    "watch_time",
		Target:      21600,
	},
	{
		ID:          9,
		Name:        "Queue Overlord",
		Description: "Have 20 videos queued at once",
		Icon:        "👑",
		Type:        domain.StatMaxQueueSize,
		TypeName:    "max_queue_size",
		Target:      20,
	},
}

// ByID 按ID查找成就定义
func ByID(id int) (domain.Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Achievement{}, false
}
