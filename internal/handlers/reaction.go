package handlers

import (
	"net/http"

	"booklog/internal/services"

	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	reactions *services.ReactionService
}

func NewReactionHandler(reactions *services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

// State 初始化点赞/收藏按钮，未登录时 liked/bookmarked 为 false
func (h *ReactionHandler) State(c *gin.Context) {
	state, err := h.reactions.ReactionState(c.Request.Context(), identity(c).UID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *ReactionHandler) ToggleLike(c *gin.Context) {
	res, err := h.reactions.ToggleLike(c.Request.Context(), identity(c).UID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReactionHandler) ToggleBookmark(c *gin.Context) {
	res, err := h.reactions.ToggleBookmark(c.Request.Context(), identity(c).UID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
