package handler

import (
	"net/http"

	"watchparty-svc/internal/achievement"

	"github.com/gin-gonic/gin"
)

// AchievementHandler 成就与统计HTTP处理器
type AchievementHandler struct {
	achievements *achievement.Service
}

// NewAchievementHandler 创建处理器
func NewAchievementHandler(achievements *achievement.Service) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

// GetAchievements 返回成就目录及用户的解锁状态和进度
func (h *AchievementHandler) GetAchievements(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	stats := h.achievements.Stats(ctx, userID)
	unlocked := h.achievements.Unlocked(ctx, userID)

	type entry struct {
		ID          int     `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Icon        string  `json:"icon"`
		Type        string  `json:"type"`
		Target      int64   `json:"target"`
		Unlocked    bool    `json:"unlocked"`
		Progress    float64 `json:"progress"`
	}

	entries := make([]entry, 0, len(achievement.Catalog))
	for _, a := range achievement.Catalog {
		entries = append(entries, entry{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			Type:        a.TypeName,
			Target:      a.Target,
			Unlocked:    unlocked.Contains(a.ID),
			Progress:    achievement.Progress(a, stats),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements": entries,
		"unlocked":     len(unlocked),
		"total":        len(achievement.Catalog),
	})
}

// GetStats 返回用户当前统计
func (h *AchievementHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats := h.achievements.Stats(c.Request.Context(), userID)
	c.JSON(http.StatusOK, stats)
}
