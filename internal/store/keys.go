package store

import "fmt"

// Key naming conventions for redis keys.
// All keys follow the pattern: wp:user:{userID}:{field}

const keyNamespace = "wp"

// Persisted field names. These are the stable key space; renaming any of
// them orphans previously persisted state.
const (
	FieldStats        = "achievement_stats"
	FieldUnlocked     = "achievement_unlocked"
	FieldSessionStart = "watch_session_start"
	FieldQueue        = "queue_state"
	FieldVolume       = "volume"
	FieldUsername     = "chatUsername"
	FieldAvatar       = "discord_avatar"
	FieldDiscordID    = "discord_user_id"
	FieldHistory      = "history"
)

// UserKey returns the key for a per-user field.
// Example: wp:user:123:achievement_stats
func UserKey(userID, field string) string {
	return fmt.Sprintf("%s:user:%s:%s", keyNamespace, userID, field)
}

// SessionStartPattern matches every user's watch-session marker, for the
// stale-marker sweep.
func SessionStartPattern() string {
	return fmt.Sprintf("%s:user:*:%s", keyNamespace, FieldSessionStart)
}
