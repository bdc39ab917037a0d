package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"booklog/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// LiveHandler 通过 WebSocket 推送帖子的实时点赞数与评论数
type LiveHandler struct {
	live     *services.LiveService
	posts    *services.PostService
	upgrader websocket.Upgrader
}

func NewLiveHandler(live *services.LiveService, posts *services.PostService) *LiveHandler {
	return &LiveHandler{
		live:  live,
		posts: posts,
		// 只推送公开计数，不限制来源
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *LiveHandler) Watch(c *gin.Context) {
	postID := c.Param("id")
	if _, err := h.posts.GetPost(c.Request.Context(), postID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[live] upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.live.Watch(ctx, postID)
	defer sub.Cancel()
	log.Printf("[live] %s watching post %s (%d subscribers)", conn.RemoteAddr(), postID, h.live.Subscribers(postID))

	// 客户端断开或发送关闭帧时结束订阅
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("[live] write to %s failed: %v", conn.RemoteAddr(), err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
