package handlers

import (
	"net/http"

	"booklog/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
	feed  *services.FeedService
}

func NewPostHandler(posts *services.PostService, feed *services.FeedService) *PostHandler {
	return &PostHandler{posts: posts, feed: feed}
}

// List 首页列表，带 q 时按标题/书名过滤
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.feed.SearchPosts(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *PostHandler) Detail(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Create(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var patch services.PostPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.posts.UpdatePost(c.Request.Context(), c.Param("id"), identity(c).UID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.posts.DeletePost(c.Request.Context(), c.Param("id"), identity(c).UID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Mine 我发布的帖子
func (h *PostHandler) Mine(c *gin.Context) {
	posts, err := h.feed.ListOwnPosts(c.Request.Context(), identity(c).UID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Bookmarks 我收藏的帖子
func (h *PostHandler) Bookmarks(c *gin.Context) {
	posts, err := h.feed.ListBookmarkedPosts(c.Request.Context(), identity(c).UID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
