package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"booklog/internal/models"
)

func seedFeed(t *testing.T, svc *PostService) []*models.Post {
	t.Helper()
	ctx := context.Background()
	inputs := []PostInput{
		{Title: "Go 동시성", Content: `<p>채널과 고루틴</p><img src="/a.png">`, Book: models.Book{Title: "The Go Programming Language"}},
		{Title: "여름의 독서", Content: "<p>해변에서 읽은 책</p>", Book: models.Book{Title: "Summer Reading", Image: "https://img.example/summer.jpg"}},
		{Title: "go lowercase", Content: "<p>소문자</p>", Book: models.Book{Title: "Misc"}},
	}
	var out []*models.Post
	for _, in := range inputs {
		p, err := svc.CreatePost(ctx, alice, in)
		if err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestListAllPostsNewestFirst(t *testing.T) {
	gdb := newTestDB(t)
	feed := NewFeedService(gdb)
	posts := NewPostService(gdb, feed)
	posts.now = stepClock(baseTime)
	created := seedFeed(t, posts)
	ctx := context.Background()

	comments := NewCommentService(gdb, feed)
	if _, err := comments.AddComment(ctx, created[0].ID, bob, "nice"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	list, err := feed.ListAllPosts(ctx)
	if err != nil {
		t.Fatalf("ListAllPosts failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 posts, got %d", len(list))
	}
	for i, want := range []string{created[2].ID, created[1].ID, created[0].ID} {
		if list[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, list[i].ID)
		}
	}

	first := list[2]
	if first.CommentCount != 1 {
		t.Errorf("Expected 1 comment, got %d", first.CommentCount)
	}
	if first.Excerpt != "채널과 고루틴" {
		t.Errorf("Unexpected excerpt %q", first.Excerpt)
	}
	if first.CoverImage != "/a.png" {
		t.Errorf("Expected cover from body image, got %q", first.CoverImage)
	}
	if list[1].CoverImage != "https://img.example/summer.jpg" {
		t.Errorf("Expected cover from book image, got %q", list[1].CoverImage)
	}
}

func TestFeedCacheInvalidation(t *testing.T) {
	gdb := newTestDB(t)
	feed := NewFeedService(gdb)
	posts := NewPostService(gdb, feed)
	posts.now = stepClock(baseTime)
	seedFeed(t, posts)
	ctx := context.Background()

	list, err := feed.ListAllPosts(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("Expected 3 posts, got %d (%v)", len(list), err)
	}

	// 修改返回的切片不影响缓存
	list[0].Title = "mutated"
	again, _ := feed.ListAllPosts(ctx)
	if again[0].Title == "mutated" {
		t.Error("Cached list shared with caller")
	}

	// 绕过服务直接写库，缓存仍返回旧列表
	seedPost(t, gdb, "direct", "someone", baseTime.Add(time.Hour))
	cached, _ := feed.ListAllPosts(ctx)
	if len(cached) != 3 {
		t.Errorf("Expected cached 3 posts, got %d", len(cached))
	}

	feed.PostChanged("direct")
	fresh, _ := feed.ListAllPosts(ctx)
	if len(fresh) != 4 || fresh[0].ID != "direct" {
		t.Errorf("Expected refreshed list headed by direct, got %d posts", len(fresh))
	}
}

func TestSearchPosts(t *testing.T) {
	gdb := newTestDB(t)
	feed := NewFeedService(gdb)
	posts := NewPostService(gdb, feed)
	posts.now = stepClock(baseTime)
	seedFeed(t, posts)
	ctx := context.Background()

	all, _ := feed.ListAllPosts(ctx)
	same, err := feed.SearchPosts(ctx, "")
	if err != nil {
		t.Fatalf("SearchPosts failed: %v", err)
	}
	if len(same) != len(all) {
		t.Fatalf("Empty query: expected %d posts, got %d", len(all), len(same))
	}
	for i := range all {
		if all[i].ID != same[i].ID {
			t.Errorf("Empty query differs at %d", i)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"Go", 1},
		{"go", 1},
		{"Summer", 1},
		{"독서", 1},
		{"nothing", 0},
	}
	for _, tt := range tests {
		got, err := feed.SearchPosts(ctx, tt.query)
		if err != nil {
			t.Fatalf("SearchPosts(%q) failed: %v", tt.query, err)
		}
		for _, p := range got {
			if !strings.Contains(p.Title, tt.query) && !strings.Contains(p.BookTitle, tt.query) {
				t.Errorf("SearchPosts(%q) returned non-matching post %q", tt.query, p.Title)
			}
		}
		if len(got) != tt.want {
			t.Errorf("SearchPosts(%q): expected %d posts, got %d", tt.query, tt.want, len(got))
		}
	}
}

func TestListBookmarkedPosts(t *testing.T) {
	gdb := newTestDB(t)
	seedPost(t, gdb, "a", "author", baseTime)
	seedPost(t, gdb, "b", "author", baseTime.Add(time.Minute))
	seedPost(t, gdb, "c", "author", baseTime.Add(2*time.Minute))

	feed := NewFeedService(gdb)
	reactions := NewReactionService(gdb, 3, feed)
	reactions.now = stepClock(baseTime)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if _, err := reactions.ToggleBookmark(ctx, "reader", id); err != nil {
			t.Fatalf("ToggleBookmark failed: %v", err)
		}
	}
	if _, err := reactions.ToggleBookmark(ctx, "someone-else", "a"); err != nil {
		t.Fatalf("ToggleBookmark failed: %v", err)
	}

	// 直接删除帖子行，留下悬空的收藏记录
	if err := gdb.Where("id = ?", "a").Delete(&models.Post{}).Error; err != nil {
		t.Fatalf("delete post: %v", err)
	}

	got, err := feed.ListBookmarkedPosts(ctx, "reader")
	if err != nil {
		t.Fatalf("ListBookmarkedPosts failed: %v", err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "c,b" {
		t.Errorf("Expected c,b, got %v", ids)
	}

	none, err := feed.ListBookmarkedPosts(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("Expected empty list, got %v (%v)", none, err)
	}
	if _, err := feed.ListBookmarkedPosts(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestListOwnPosts(t *testing.T) {
	gdb := newTestDB(t)
	seedPost(t, gdb, "mine-old", alice.UID, baseTime)
	seedPost(t, gdb, "theirs", bob.UID, baseTime.Add(time.Minute))
	seedPost(t, gdb, "mine-new", alice.UID, baseTime.Add(2*time.Minute))
	feed := NewFeedService(gdb)

	got, err := feed.ListOwnPosts(context.Background(), alice.UID)
	if err != nil {
		t.Fatalf("ListOwnPosts failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "mine-new" || got[1].ID != "mine-old" {
		t.Errorf("Unexpected own posts %+v", got)
	}
}
