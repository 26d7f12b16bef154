package handler

import (
	"net/http"

	"watchparty-svc/internal/achievement"
	"watchparty-svc/internal/auth"
	"watchparty-svc/internal/config"
	"watchparty-svc/internal/store"
	"watchparty-svc/internal/validate"

	"github.com/gin-gonic/gin"
)

// IdentityHandler OAuth回跳处理器
// 协作方（Discord登录网关）在回跳URL上携带username/avatar/userId三个参数
type IdentityHandler struct {
	store        *store.Store
	achievements *achievement.Service
	jwt          *auth.Manager
	party        config.PartyConfig
}

// NewIdentityHandler 创建处理器
func NewIdentityHandler(st *store.Store, achievements *achievement.Service, jwt *auth.Manager, party config.PartyConfig) *IdentityHandler {
	return &IdentityHandler{
		store:        st,
		achievements: achievements,
		jwt:          jwt,
		party:        party,
	}
}

// Callback 处理OAuth回跳
// 三个参数独立截断到配置上限后持久化；首次接入该Discord身份时计一次
// discord_connections。随后签发会话token并跳转回应用首页
func (h *IdentityHandler) Callback(c *gin.Context) {
	username := validate.Identity(c.Query("username"), h.party.MaxUsernameLen)
	avatar := validate.Identity(c.Query("avatar"), h.party.MaxAvatarLen)
	discordID := validate.Identity(c.Query("userId"), h.party.MaxUserIDLen)

	if discordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	ctx := c.Request.Context()

	// 以Discord用户ID作为本服务的用户主键
	userID := discordID

	previous := store.Load(ctx, h.store, store.UserKey(userID, store.FieldDiscordID), "", nil)

	h.store.Save(ctx, store.UserKey(userID, store.FieldUsername), username)
	h.store.Save(ctx, store.UserKey(userID, store.FieldAvatar), avatar)
	h.store.Save(ctx, store.UserKey(userID, store.FieldDiscordID), discordID)

	if previous != discordID {
		h.achievements.ConnectDiscord(ctx, userID)
	}

	token, err := h.jwt.GenerateToken(userID, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.Redirect(http.StatusFound, "/?token="+token)
}

// GetProfile 返回当前用户的身份信息
func (h *IdentityHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"username": store.Load(ctx, h.store, store.UserKey(userID, store.FieldUsername), "", nil),
		"avatar":   store.Load(ctx, h.store, store.UserKey(userID, store.FieldAvatar), "", nil),
	})
}
