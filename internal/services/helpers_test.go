package services

import (
	"testing"
	"time"

	"booklog/internal/db"
	"booklog/internal/models"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// seedPost 直接写入一条帖子
func seedPost(t *testing.T, gdb *gorm.DB, id, authorID string, createdAt time.Time) models.Post {
	t.Helper()
	post := models.Post{
		ID:        id,
		Title:     "title " + id,
		Content:   "<p>content " + id + "</p>",
		CreatedAt: createdAt,
		AuthorID:  authorID,
		BookTitle: "book " + id,
	}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
	return post
}

// stepClock 每次调用前进一秒
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingObserver struct {
	changed []string
}

func (r *recordingObserver) PostChanged(postID string) {
	r.changed = append(r.changed, postID)
}
