package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"booklog/internal/models"
	"booklog/internal/utils"

	"gorm.io/gorm"
)

const (
	feedCacheKey   = "feed:all"
	feedCacheTTL   = time.Minute
	excerptMaxRune = 120
)

// FeedService 首页、收藏、我的帖子列表。全量列表在进程内缓存，任何帖子变化都会使其失效
type FeedService struct {
	db    *gorm.DB
	cache *utils.TTLCache[[]models.Post]

	mu         sync.Mutex
	generation uint64
}

func NewFeedService(gdb *gorm.DB) *FeedService {
	return &FeedService{
		db:    gdb,
		cache: utils.NewTTLCache[[]models.Post](16, feedCacheTTL),
	}
}

// PostChanged 实现 PostObserver
func (s *FeedService) PostChanged(string) {
	s.mu.Lock()
	s.generation++
	s.cache.Delete(feedCacheKey)
	s.mu.Unlock()
}

// ListAllPosts 按创建时间倒序
func (s *FeedService) ListAllPosts(ctx context.Context) ([]models.Post, error) {
	if cached, ok := s.cache.Get(feedCacheKey); ok {
		return clonePosts(cached), nil
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	posts := make([]models.Post, 0)
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	if err := s.decorate(ctx, posts); err != nil {
		return nil, err
	}

	// 查询期间列表已失效则不回填，避免缓存旧数据
	s.mu.Lock()
	if s.generation == gen {
		s.cache.Set(feedCacheKey, clonePosts(posts))
	}
	s.mu.Unlock()

	return posts, nil
}

// SearchPosts 对全量列表做区分大小写的子串过滤，匹配标题或书名。空查询等同于 ListAllPosts
func (s *FeedService) SearchPosts(ctx context.Context, query string) ([]models.Post, error) {
	posts, err := s.ListAllPosts(ctx)
	if err != nil || query == "" {
		return posts, err
	}

	matched := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(p.Title, query) || strings.Contains(p.BookTitle, query) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// ListBookmarkedPosts 按收藏时间倒序，已删除的帖子直接跳过
func (s *FeedService) ListBookmarkedPosts(ctx context.Context, userID string) ([]models.Post, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	gdb := s.db.WithContext(ctx)

	var postIDs []string
	err := gdb.Table(models.ReactionBookmark.Collection()).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Pluck("post_id", &postIDs).Error
	if err != nil {
		return nil, storeErr("list bookmarks", err)
	}
	if len(postIDs) == 0 {
		return []models.Post{}, nil
	}

	var found []models.Post
	if err := gdb.Where("id IN ?", postIDs).Find(&found).Error; err != nil {
		return nil, storeErr("load bookmarked posts", err)
	}
	byID := make(map[string]models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	posts := make([]models.Post, 0, len(found))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	if err := s.decorate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *FeedService) ListOwnPosts(ctx context.Context, userID string) ([]models.Post, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	posts := make([]models.Post, 0)
	err := s.db.WithContext(ctx).
		Where("author_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, storeErr("list own posts", err)
	}
	if err := s.decorate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// decorate 批量填充评论数、摘要和封面
func (s *FeedService) decorate(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID string
		Count  int64
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		return storeErr("count comments", err)
	}

	countMap := make(map[string]int64, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}

	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]

		summary := utils.SummarizeHTML(posts[i].Content, excerptMaxRune)
		posts[i].Excerpt = summary.Excerpt
		posts[i].CoverImage = posts[i].BookImage
		if posts[i].CoverImage == "" {
			posts[i].CoverImage = summary.FirstImage
		}
	}
	return nil
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out
}
