package main

import (
	"context"
	"log"
	"time"

	"booklog/internal/config"
	"booklog/internal/db"
	"booklog/internal/middleware"
	"booklog/internal/router"
	"booklog/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := config.Load()
	if cfg.IdentityJWTSecret == "" {
		log.Println("IDENTITY_JWT_SECRET is empty, bearer tokens will be rejected")
	}

	// Initialize Database
	db.Init(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	books := services.NewBookSearchService(cfg.BookSearchURL, cfg.NaverClientID, cfg.NaverClientSecret)
	svc := router.NewServices(db.DB, cfg.ToggleMaxRetries, cfg.RateLimitPerMinute, books)

	// 实时计数推送 worker
	go svc.Live.Run(ctx)
	svc.Limiter.StartCleanup(ctx, 10*time.Minute)

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 86400 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("booklog_session", store))

	// Middleware
	r.Use(middleware.LoadIdentity(cfg.IdentityJWTSecret))

	router.RegisterRoutes(r, svc)

	log.Printf("Booklog server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
