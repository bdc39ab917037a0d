package services

import (
	"context"
	"time"

	"booklog/internal/models"

	"gorm.io/gorm"
)

// PostObserver 帖子的点赞、评论或内容变化后收到通知
type PostObserver interface {
	PostChanged(postID string)
}

type observers []PostObserver

func (o observers) notify(postID string) {
	for _, ob := range o {
		if ob != nil {
			ob.PostChanged(postID)
		}
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func countReactions(ctx context.Context, gdb *gorm.DB, kind models.ReactionKind, postID string) (int64, error) {
	var n int64
	err := gdb.WithContext(ctx).Table(kind.Collection()).Where("post_id = ?", postID).Count(&n).Error
	return n, storeErr("count "+kind.Collection(), err)
}

func countComments(ctx context.Context, gdb *gorm.DB, postID string) (int64, error) {
	var n int64
	err := gdb.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, storeErr("count comments", err)
}
