package router

import (
	"net/http"

	"booklog/internal/handlers"
	"booklog/internal/middleware"
	"booklog/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services 路由依赖的服务
type Services struct {
	DB        *gorm.DB
	Posts     *services.PostService
	Feed      *services.FeedService
	Reactions *services.ReactionService
	Comments  *services.CommentService
	Live      *services.LiveService
	Books     *services.BookSearchService
	Limiter   *middleware.RateLimiter
}

// NewServices 组装服务，帖子/点赞/评论的变化会通知 feed 缓存与实时推送
func NewServices(gdb *gorm.DB, toggleRetries, ratePerMinute int, books *services.BookSearchService) Services {
	feed := services.NewFeedService(gdb)
	live := services.NewLiveService(gdb)
	return Services{
		DB:        gdb,
		Posts:     services.NewPostService(gdb, feed, live),
		Feed:      feed,
		Reactions: services.NewReactionService(gdb, toggleRetries, feed, live),
		Comments:  services.NewCommentService(gdb, feed, live),
		Live:      live,
		Books:     books,
		Limiter:   middleware.NewRateLimiter(ratePerMinute, 5),
	}
}

func RegisterRoutes(r *gin.Engine, s Services) {
	// Handlers
	postHandler := handlers.NewPostHandler(s.Posts, s.Feed)
	reactionHandler := handlers.NewReactionHandler(s.Reactions)
	commentHandler := handlers.NewCommentHandler(s.Comments)
	bookHandler := handlers.NewBookHandler(s.Books)
	liveHandler := handlers.NewLiveHandler(s.Live, s.Posts)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 实时计数
	r.GET("/ws/posts/:id", liveHandler.Watch)

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/posts", postHandler.List)                    // 列表 / 搜索
	api.GET("/posts/:id", postHandler.Detail)              // 帖子详情
	api.GET("/posts/:id/reactions", reactionHandler.State) // 点赞/收藏状态
	api.GET("/posts/:id/comments", commentHandler.List)    // 评论列表
	api.GET("/books/search", bookHandler.Search)           // 图书检索

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)          // 发布
		authorized.PATCH("/posts/:id", postHandler.Update)     // 部分更新
		authorized.DELETE("/posts/:id", postHandler.Delete)    // 级联删除
		authorized.GET("/me/posts", postHandler.Mine)          // 我的帖子
		authorized.GET("/me/bookmarks", postHandler.Bookmarks) // 我的收藏

		authorized.POST("/posts/:id/like", s.Limiter.Middleware(), reactionHandler.ToggleLike)
		authorized.POST("/posts/:id/bookmark", s.Limiter.Middleware(), reactionHandler.ToggleBookmark)

		authorized.POST("/posts/:id/comments", commentHandler.Create) // 发表评论
		authorized.PATCH("/comments/:id", commentHandler.Update)      // 编辑评论
		authorized.DELETE("/comments/:id", commentHandler.Delete)     // 删除评论

		authorized.DELETE("/session", func(c *gin.Context) { // 退出登录
			middleware.ClearIdentity(c)
			c.Status(http.StatusNoContent)
		})
	}
}
