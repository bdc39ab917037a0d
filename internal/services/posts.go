package services

import (
	"context"
	"log"
	"strings"
	"time"

	"booklog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostInput 发布帖子时的表单内容，书籍信息来自图书检索结果
type PostInput struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Book    models.Book `json:"book"`
}

// PostPatch 部分更新，nil 字段保持不变
type PostPatch struct {
	Title   *string      `json:"title"`
	Content *string      `json:"content"`
	Book    *models.Book `json:"book"`
}

type PostService struct {
	db        *gorm.DB
	now       func() time.Time
	observers observers
}

func NewPostService(gdb *gorm.DB, obs ...PostObserver) *PostService {
	return &PostService{db: gdb, now: utcNow, observers: obs}
}

func (s *PostService) CreatePost(ctx context.Context, author models.Identity, in PostInput) (*models.Post, error) {
	if author.UID == "" {
		return nil, ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationErr("title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, validationErr("content is required")
	}
	if strings.TrimSpace(in.Book.Title) == "" {
		return nil, validationErr("a book must be selected")
	}

	post := models.Post{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		Title:              title,
		Content:            in.Content,
		CreatedAt:          s.now(),
		AuthorID:           author.UID,
		AuthorName:         author.DisplayName,
		AuthorProfileImage: author.PhotoURL,
		LikesCount:         0,
	}
	applyBook(&post, in.Book)

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, storeErr("create post", err)
	}

	s.observers.notify(post.ID)
	return &post, nil
}

func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error; err != nil {
		return nil, storeErr("get post", err)
	}
	return &post, nil
}

// UpdatePost 只更新传入的字段，likes_count 不在可修改范围内
func (s *PostService) UpdatePost(ctx context.Context, postID, callerID string, patch PostPatch) (*models.Post, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationErr("title is required")
		}
		updates["title"] = title
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, validationErr("content is required")
		}
		updates["content"] = *patch.Content
	}
	if patch.Book != nil {
		if strings.TrimSpace(patch.Book.Title) == "" {
			return nil, validationErr("a book must be selected")
		}
		var p models.Post
		applyBook(&p, *patch.Book)
		updates["book_title"] = p.BookTitle
		updates["book_link"] = p.BookLink
		updates["book_image"] = p.BookImage
		updates["book_author"] = p.BookAuthor
		updates["book_pub_date"] = p.BookPubDate
	}

	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return storeErr("load post", err)
		}
		if post.AuthorID != callerID {
			return ErrForbidden
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Updates(updates).Error; err != nil {
			return storeErr("update post", err)
		}
		return storeErr("reload post", tx.Where("id = ?", postID).First(&post).Error)
	})
	if err != nil {
		return nil, err
	}

	s.observers.notify(postID)
	return &post, nil
}

// DeletePost 级联删除：评论 -> 点赞/收藏 -> 帖子。
// 前两步尽力而为，失败只记录日志；最后一步在一个事务内删除帖子并清理残留记录。
func (s *PostService) DeletePost(ctx context.Context, postID, callerID string) error {
	if callerID == "" {
		return ErrUnauthorized
	}

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return ErrForbidden
	}

	gdb := s.db.WithContext(ctx)

	// 1. 评论
	if res := gdb.Where("post_id = ?", postID).Delete(&models.Comment{}); res.Error != nil {
		log.Printf("[cascade] post %s: failed to delete comments: %v", postID, res.Error)
	} else {
		log.Printf("[cascade] post %s: deleted %d comments", postID, res.RowsAffected)
	}

	// 2. 点赞与收藏
	for _, kind := range []models.ReactionKind{models.ReactionLike, models.ReactionBookmark} {
		res := gdb.Table(kind.Collection()).Where("post_id = ?", postID).Delete(&models.Reaction{})
		if res.Error != nil {
			log.Printf("[cascade] post %s: failed to delete %s: %v", postID, kind.Collection(), res.Error)
			continue
		}
		log.Printf("[cascade] post %s: deleted %d %s", postID, res.RowsAffected, kind.Collection())
	}

	// 3. 帖子本身。先删帖子行，正在进行的点赞切换会因计数 CAS 失败而重试并得到 NotFound，
	// 之后再清理前两步执行期间新增的记录
	err = gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND author_id = ?", postID, callerID).Delete(&models.Post{})
		if res.Error != nil {
			return storeErr("delete post", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return storeErr("sweep comments", err)
		}
		for _, kind := range []models.ReactionKind{models.ReactionLike, models.ReactionBookmark} {
			if err := tx.Table(kind.Collection()).Where("post_id = ?", postID).Delete(&models.Reaction{}).Error; err != nil {
				return storeErr("sweep "+kind.Collection(), err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[cascade] post %s: failed to delete post: %v", postID, err)
		return err
	}

	s.observers.notify(postID)
	return nil
}

func applyBook(p *models.Post, b models.Book) {
	p.BookTitle = strings.TrimSpace(b.Title)
	p.BookLink = b.Link
	p.BookImage = b.Image
	p.BookAuthor = b.Author
	p.BookPubDate = b.PubDate
}
