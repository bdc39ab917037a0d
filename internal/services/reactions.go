package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"booklog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultToggleRetries = 5
	defaultRetryBackoff  = 20 * time.Millisecond
)

type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
}

// ReactionState 页面加载时初始化点赞/收藏按钮用
type ReactionState struct {
	Liked      bool  `json:"liked"`
	Bookmarked bool  `json:"bookmarked"`
	LikesCount int64 `json:"likesCount"` // 由 likes 集合实时统计
}

// ReactionService 维护 likes / bookmarks 记录以及 posts.likes_count 缓存计数。
// likes_count 只在 ToggleLike 的事务里修改。
type ReactionService struct {
	db         *gorm.DB
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	observers  observers
}

func NewReactionService(gdb *gorm.DB, maxRetries int, obs ...PostObserver) *ReactionService {
	if maxRetries <= 0 {
		maxRetries = DefaultToggleRetries
	}
	return &ReactionService{
		db:         gdb,
		maxRetries: maxRetries,
		backoff:    defaultRetryBackoff,
		now:        utcNow,
		observers:  obs,
	}
}

// ToggleLike 切换点赞。成员记录与计数在同一事务内变更，计数以
// likes_count = 旧值 为条件做 compare-and-set，失败则整体回滚重试。
func (s *ReactionService) ToggleLike(ctx context.Context, userID, postID string) (LikeResult, error) {
	if userID == "" {
		return LikeResult{}, ErrUnauthorized
	}

	var result LikeResult
	err := retryOnConflict(ctx, s.maxRetries, s.backoff, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var post models.Post
			if err := tx.Select("id", "likes_count").Where("id = ?", postID).First(&post).Error; err != nil {
				return storeErr("load post", err)
			}

			liked, err := hasReaction(tx, models.ReactionLike, userID, postID)
			if err != nil {
				return err
			}

			var delta int64
			if liked {
				removed, err := removeReaction(tx, models.ReactionLike, userID, postID)
				if err != nil {
					return err
				}
				delta = -removed
			} else {
				if err := insertReaction(tx, models.ReactionLike, userID, postID, s.now()); err != nil {
					return err
				}
				delta = 1
			}

			next := post.LikesCount + delta
			res := tx.Model(&models.Post{}).
				Where("id = ? AND likes_count = ?", postID, post.LikesCount).
				UpdateColumn("likes_count", next)
			if res.Error != nil {
				return storeErr("update likes_count", res.Error)
			}
			if res.RowsAffected == 0 {
				// 计数已被并发修改，或帖子已被删除
				return errWriteConflict
			}

			result = LikeResult{Liked: !liked, LikesCount: next}
			return nil
		})
	})
	if err != nil {
		return LikeResult{}, err
	}

	s.observers.notify(postID)
	return result, nil
}

// ToggleBookmark 切换收藏，不维护计数。帖子行加锁，与级联删除互斥。
func (s *ReactionService) ToggleBookmark(ctx context.Context, userID, postID string) (BookmarkResult, error) {
	if userID == "" {
		return BookmarkResult{}, ErrUnauthorized
	}

	var result BookmarkResult
	err := retryOnConflict(ctx, s.maxRetries, s.backoff, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var post models.Post
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
				return storeErr("load post", err)
			}

			bookmarked, err := hasReaction(tx, models.ReactionBookmark, userID, postID)
			if err != nil {
				return err
			}
			if bookmarked {
				if _, err := removeReaction(tx, models.ReactionBookmark, userID, postID); err != nil {
					return err
				}
			} else if err := insertReaction(tx, models.ReactionBookmark, userID, postID, s.now()); err != nil {
				return err
			}

			result = BookmarkResult{Bookmarked: !bookmarked}
			return nil
		})
	})
	if err != nil {
		return BookmarkResult{}, err
	}
	return result, nil
}

func (s *ReactionService) IsReacted(ctx context.Context, userID, postID string, kind models.ReactionKind) (bool, error) {
	if !kind.Valid() {
		return false, validationErr("unknown reaction kind")
	}
	if userID == "" {
		return false, nil
	}
	return hasReaction(s.db.WithContext(ctx), kind, userID, postID)
}

// CountLikes 以 likes 集合为准的点赞数，不读缓存字段
func (s *ReactionService) CountLikes(ctx context.Context, postID string) (int64, error) {
	return countReactions(ctx, s.db, models.ReactionLike, postID)
}

func (s *ReactionService) ReactionState(ctx context.Context, userID, postID string) (ReactionState, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
		return ReactionState{}, storeErr("load post", err)
	}

	var state ReactionState
	var err error
	if state.LikesCount, err = s.CountLikes(ctx, postID); err != nil {
		return ReactionState{}, err
	}
	if state.Liked, err = s.IsReacted(ctx, userID, postID, models.ReactionLike); err != nil {
		return ReactionState{}, err
	}
	if state.Bookmarked, err = s.IsReacted(ctx, userID, postID, models.ReactionBookmark); err != nil {
		return ReactionState{}, err
	}
	return state, nil
}

func hasReaction(tx *gorm.DB, kind models.ReactionKind, userID, postID string) (bool, error) {
	var n int64
	err := tx.Table(kind.Collection()).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	if err != nil {
		return false, storeErr("check "+kind.Collection(), err)
	}
	return n > 0, nil
}

func insertReaction(tx *gorm.DB, kind models.ReactionKind, userID, postID string, at time.Time) error {
	r := models.Reaction{
		ID:        models.ReactionID(kind, postID, userID),
		UserID:    userID,
		PostID:    postID,
		Kind:      kind,
		CreatedAt: at,
	}
	// 文档 ID 固定，并发的重复插入会以主键冲突失败
	return storeErr("insert "+kind.Collection(), tx.Table(kind.Collection()).Create(&r).Error)
}

func removeReaction(tx *gorm.DB, kind models.ReactionKind, userID, postID string) (int64, error) {
	res := tx.Table(kind.Collection()).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Reaction{})
	if res.Error != nil {
		return 0, storeErr("delete "+kind.Collection(), res.Error)
	}
	return res.RowsAffected, nil
}

// retryOnConflict 遇到写冲突时重新执行 step，最多 attempts 次
func retryOnConflict(ctx context.Context, attempts int, backoff time.Duration, step func() error) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		err := step()
		if !errors.Is(err, errWriteConflict) {
			return err
		}
		log.Printf("[reactions] write conflict, attempt %d/%d", attempt, attempts)
		if attempt == attempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return canceledErr(err)
		}
		select {
		case <-ctx.Done():
			return canceledErr(ctx.Err())
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return ErrConflictExhausted
}

// canceledErr 请求在退避等待中被取消，按存储不可用处理
func canceledErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
