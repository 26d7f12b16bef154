package playback

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"time"

	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/store"
)

// History 播放历史仓储
// 约束: 每个locator首次播放时追加一条，按精确匹配去重；每用户保留limit条
type History struct {
	store *store.Store
	limit int64
}

// NewHistory 创建播放历史仓储
func NewHistory(st *store.Store, limit int) *History {
	if limit <= 0 {
		limit = 500
	}
	return &History{store: st, limit: int64(limit)}
}

// List 返回用户的播放历史，最新的在前
func (h *History) List(ctx context.Context, userID string, limit int) []domain.HistoryEntry {
	if limit <= 0 || int64(limit) > h.limit {
		limit = int(h.limit)
	}

	raw := h.store.LoadList(ctx, store.UserKey(userID, store.FieldHistory), int64(limit))
	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			log.Printf("Skipping malformed history entry: user=%s, error=%v", userID, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// RecordFirstPlay 记录locator的首次播放；已存在时为no-op
func (h *History) RecordFirstPlay(ctx context.Context, userID, locator string) {
	for _, existing := range h.List(ctx, userID, int(h.limit)) {
		if existing.SourceLocator == locator {
			return
		}
	}

	entry := entryFor(locator)
	h.store.PushCapped(ctx, store.UserKey(userID, store.FieldHistory), entry, h.limit)
}

// entryFor 从locator推导历史条目的展示信息
func entryFor(locator string) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		DisplayName:   locator,
		SourceLocator: locator,
		Kind:          "video",
		InsertedAt:    time.Now(),
	}

	u, err := url.Parse(locator)
	if err != nil {
		return entry
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtube.com", "youtube-nocookie.com":
		entry.Kind = "youtube"
		if id := u.Query().Get("v"); id != "" {
			entry.DisplayName = id
		}
	case "youtu.be":
		entry.Kind = "youtube"
		if id := strings.Trim(u.Path, "/"); id != "" {
			entry.DisplayName = id
		}
	default:
		if base := strings.Trim(u.Path, "/"); base != "" {
			parts := strings.Split(base, "/")
			entry.DisplayName = parts[len(parts)-1]
		} else {
			entry.DisplayName = host
		}
	}

	return entry
}
