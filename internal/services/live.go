package services

import (
	"context"
	"log"
	"sync"
	"time"

	"booklog/internal/models"

	"gorm.io/gorm"
)

const (
	liveQueueSize = 1000
	liveBatchSize = 50
	liveInterval  = 100 * time.Millisecond
)

// Subscription 单个帖子的实时计数订阅。C 只保留最新一条快照
type Subscription struct {
	C <-chan models.LiveSnapshot

	ch     chan models.LiveSnapshot
	done   chan struct{}
	postID string
	live   *LiveService
	once   sync.Once
}

// Cancel 取消订阅，可重复调用。返回后不会再收到任何快照
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.live.unsubscribe(sub)
		close(sub.done)
	})
}

// LiveService 异步重新统计帖子的点赞数与评论数，并推送给订阅者
type LiveService struct {
	db       *gorm.DB
	queue    chan string
	pending  map[string]bool
	subs     map[string]map[*Subscription]struct{}
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

func NewLiveService(gdb *gorm.DB) *LiveService {
	return &LiveService{
		db:       gdb,
		queue:    make(chan string, liveQueueSize),
		pending:  make(map[string]bool),
		subs:     make(map[string]map[*Subscription]struct{}),
		interval: liveInterval,
		now:      utcNow,
	}
}

// Watch 订阅帖子的实时计数，首条快照由后台 worker 推送。ctx 结束时自动取消
func (s *LiveService) Watch(ctx context.Context, postID string) *Subscription {
	ch := make(chan models.LiveSnapshot, 1)
	sub := &Subscription{
		C:      ch,
		ch:     ch,
		done:   make(chan struct{}),
		postID: postID,
		live:   s,
	}

	s.mu.Lock()
	if s.subs[postID] == nil {
		s.subs[postID] = make(map[*Subscription]struct{})
	}
	s.subs[postID][sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()

	s.Schedule(postID)
	return sub
}

// PostChanged 实现 PostObserver
func (s *LiveService) PostChanged(postID string) {
	s.Schedule(postID)
}

// Schedule 将帖子加入重算队列（异步，去重）。没有订阅者的帖子直接忽略
func (s *LiveService) Schedule(postID string) {
	s.mu.Lock()
	if len(s.subs[postID]) == 0 || s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		log.Printf("[live] queue full, skip post %s", postID)
	}
}

// Run 后台 worker，直到 ctx 结束
func (s *LiveService) Run(ctx context.Context) {
	batch := make([]string, 0, liveBatchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= liveBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *LiveService) processBatch(ctx context.Context, postIDs []string) {
	for _, postID := range postIDs {
		// 先清除 pending，统计期间发生的变化会重新入队
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()

		snap, err := s.snapshot(ctx, postID)
		if err != nil {
			log.Printf("[live] snapshot post %s failed: %v", postID, err)
			continue
		}
		s.deliver(snap)
	}
}

func (s *LiveService) snapshot(ctx context.Context, postID string) (models.LiveSnapshot, error) {
	likes, err := countReactions(ctx, s.db, models.ReactionLike, postID)
	if err != nil {
		return models.LiveSnapshot{}, err
	}
	comments, err := countComments(ctx, s.db, postID)
	if err != nil {
		return models.LiveSnapshot{}, err
	}
	return models.LiveSnapshot{
		PostID:       postID,
		LikesCount:   likes,
		CommentCount: comments,
		At:           s.now(),
	}, nil
}

// deliver 用新快照覆盖订阅者尚未读取的旧快照，不会阻塞
func (s *LiveService) deliver(snap models.LiveSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs[snap.PostID] {
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

func (s *LiveService) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set := s.subs[sub.postID]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(s.subs, sub.postID)
		}
	}
	// 丢弃未读快照后关闭
	select {
	case <-sub.ch:
	default:
	}
	close(sub.ch)
}

// Subscribers 当前订阅某帖子的连接数
func (s *LiveService) Subscribers(postID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[postID])
}
