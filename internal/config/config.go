package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DBDriver    string // postgres, mysql, sqlite
	DatabaseURL string

	SessionSecret     string
	IdentityJWTSecret string // HS256 secret shared with the identity provider

	ToggleMaxRetries   int
	RateLimitPerMinute int

	// 图书检索 (Naver Book Search API)
	NaverClientID     string
	NaverClientSecret string
	BookSearchURL     string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=booklog port=5432 sslmode=disable TimeZone=UTC"),

		SessionSecret:     getEnv("SESSION_SECRET", "secret_key_change_me"),
		IdentityJWTSecret: os.Getenv("IDENTITY_JWT_SECRET"),

		ToggleMaxRetries:   getEnvInt("TOGGLE_MAX_RETRIES", 5),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		NaverClientID:     os.Getenv("NAVER_CLIENT_ID"),
		NaverClientSecret: os.Getenv("NAVER_CLIENT_SECRET"),
		BookSearchURL:     getEnv("BOOK_SEARCH_URL", "https://openapi.naver.com/v1/search/book.json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
