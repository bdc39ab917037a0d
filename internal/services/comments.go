package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"booklog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MaxCommentLength = 2000

type CommentService struct {
	db        *gorm.DB
	now       func() time.Time
	observers observers
}

func NewCommentService(gdb *gorm.DB, obs ...PostObserver) *CommentService {
	return &CommentService{db: gdb, now: utcNow, observers: obs}
}

// ListComments 按创建时间升序，时间相同按 ID（UUIDv7，单调递增）排序
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return comments, nil
}

func (s *CommentService) CountComments(ctx context.Context, postID string) (int64, error) {
	return countComments(ctx, s.db, postID)
}

func (s *CommentService) AddComment(ctx context.Context, postID string, author models.Identity, text string) (*models.Comment, error) {
	if author.UID == "" {
		return nil, ErrUnauthorized
	}
	text, err := normalizeCommentText(text)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:          uuid.Must(uuid.NewV7()).String(),
		PostID:      postID,
		AuthorID:    author.UID,
		AuthorName:  author.DisplayName,
		AuthorImage: author.PhotoURL,
		Text:        text,
		CreatedAt:   s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 共享锁：帖子在本事务提交前不会被级联删除
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
			return storeErr("load post", err)
		}
		return storeErr("insert comment", tx.Create(&comment).Error)
	})
	if err != nil {
		return nil, err
	}

	s.observers.notify(postID)
	return &comment, nil
}

// EditComment 原地修改评论内容，仅作者本人可操作
func (s *CommentService) EditComment(ctx context.Context, commentID, callerID, text string) (*models.Comment, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	text, err := normalizeCommentText(text)
	if err != nil {
		return nil, err
	}

	var comment models.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOwnedComment(tx, commentID, callerID, &comment); err != nil {
			return err
		}
		now := s.now()
		res := tx.Model(&models.Comment{}).
			Where("id = ? AND author_id = ?", commentID, callerID).
			Updates(map[string]interface{}{"text": text, "updated_at": now})
		if res.Error != nil {
			return storeErr("update comment", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		comment.Text = text
		comment.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observers.notify(comment.PostID)
	return &comment, nil
}

// DeleteComment 删除评论。已删除的评论返回 ErrNotFound，调用方可视为成功
func (s *CommentService) DeleteComment(ctx context.Context, commentID, callerID string) error {
	if callerID == "" {
		return ErrUnauthorized
	}

	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOwnedComment(tx, commentID, callerID, &comment); err != nil {
			return err
		}
		res := tx.Where("id = ? AND author_id = ?", commentID, callerID).Delete(&models.Comment{})
		if res.Error != nil {
			return storeErr("delete comment", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.observers.notify(comment.PostID)
	return nil
}

func loadOwnedComment(tx *gorm.DB, commentID, callerID string, dst *models.Comment) error {
	if err := tx.Where("id = ?", commentID).First(dst).Error; err != nil {
		return storeErr("load comment", err)
	}
	if dst.AuthorID != callerID {
		return ErrForbidden
	}
	return nil
}

func normalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", validationErr("comment text is empty")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", validationErr("comment text is too long")
	}
	return text, nil
}
