package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"booklog/internal/db"
	"booklog/internal/middleware"
	"booklog/internal/models"
	"booklog/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const testSecret = "router-test-secret"

type testApp struct {
	engine *gin.Engine
	svc    Services
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	books := services.NewBookSearchService("http://127.0.0.1:0", "", "")
	svc := NewServices(gdb, 3, 600, books)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Live.Run(ctx)

	r := gin.New()
	r.Use(sessions.Sessions("booklog_session", cookie.NewStore([]byte("session"))))
	r.Use(middleware.LoadIdentity(testSecret))
	RegisterRoutes(r, svc)
	return &testApp{engine: r, svc: svc}
}

func bearer(t *testing.T, uid, name string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uid,
		"name": name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func (a *testApp) do(t *testing.T, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := bearer(t, "alice", "Alice")
	bob := bearer(t, "bob", "Bob")

	// 未登录不能发布
	if w := app.do(t, http.MethodPost, "/api/posts", "", gin.H{"title": "x"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if w := app.do(t, http.MethodPost, "/api/posts", alice, gin.H{"title": "no book", "content": "<p>x</p>"}); w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	w := app.do(t, http.MethodPost, "/api/posts", alice, gin.H{
		"title":   "첫 번째 서평",
		"content": "<p>좋았다</p>",
		"book":    gin.H{"title": "채식주의자", "author": "한강"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var post models.Post
	decode(t, w, &post)

	// 点赞
	w = app.do(t, http.MethodPost, "/api/posts/"+post.ID+"/like", bob, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var liked services.LikeResult
	decode(t, w, &liked)
	if !liked.Liked || liked.LikesCount != 1 {
		t.Errorf("Unexpected like result %+v", liked)
	}

	w = app.do(t, http.MethodPost, "/api/posts/"+post.ID+"/bookmark", bob, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = app.do(t, http.MethodGet, "/api/posts/"+post.ID+"/reactions", bob, nil)
	var state services.ReactionState
	decode(t, w, &state)
	if !state.Liked || !state.Bookmarked || state.LikesCount != 1 {
		t.Errorf("Unexpected reaction state %+v", state)
	}

	// 评论
	w = app.do(t, http.MethodPost, "/api/posts/"+post.ID+"/comments", bob, gin.H{"text": "  공감해요 "})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var comment models.Comment
	decode(t, w, &comment)
	if comment.Text != "공감해요" || comment.AuthorName != "Bob" {
		t.Errorf("Unexpected comment %+v", comment)
	}
	if w := app.do(t, http.MethodPost, "/api/posts/"+post.ID+"/comments", bob, gin.H{"text": " "}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty comment, got %d", w.Code)
	}
	if w := app.do(t, http.MethodPatch, "/api/comments/"+comment.ID, alice, gin.H{"text": "edited"}); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 editing someone else's comment, got %d", w.Code)
	}

	// 列表与搜索
	w = app.do(t, http.MethodGet, "/api/posts?q="+url.QueryEscape("채식"), "", nil)
	var listing struct {
		Posts []models.Post `json:"posts"`
	}
	decode(t, w, &listing)
	if len(listing.Posts) != 1 || listing.Posts[0].CommentCount != 1 || listing.Posts[0].LikesCount != 1 {
		t.Errorf("Unexpected search result %+v", listing.Posts)
	}

	w = app.do(t, http.MethodGet, "/api/me/bookmarks", bob, nil)
	decode(t, w, &listing)
	if len(listing.Posts) != 1 || listing.Posts[0].ID != post.ID {
		t.Errorf("Unexpected bookmarks %+v", listing.Posts)
	}

	// 删除
	if w := app.do(t, http.MethodDelete, "/api/posts/"+post.ID, bob, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
	if w := app.do(t, http.MethodDelete, "/api/posts/"+post.ID, alice, nil); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/api/posts/"+post.ID, "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}

	w = app.do(t, http.MethodGet, "/api/posts/"+post.ID+"/comments", "", nil)
	var comments struct {
		Comments []models.Comment `json:"comments"`
	}
	decode(t, w, &comments)
	if len(comments.Comments) != 0 {
		t.Errorf("Expected no comments after cascade, got %d", len(comments.Comments))
	}

	w = app.do(t, http.MethodGet, "/api/me/bookmarks", bob, nil)
	decode(t, w, &listing)
	if len(listing.Posts) != 0 {
		t.Errorf("Expected no bookmarks after cascade, got %d", len(listing.Posts))
	}
}

func TestBookSearchUnavailable(t *testing.T) {
	app := newTestApp(t)
	if w := app.do(t, http.MethodGet, "/api/books/search?q=", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty query, got %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/api/books/search?q=go", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without credentials, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("Unexpected healthz response %d %s", w.Code, w.Body.String())
	}
}

func TestLiveWebSocket(t *testing.T) {
	app := newTestApp(t)
	server := httptest.NewServer(app.engine)
	defer server.Close()

	alice := bearer(t, "alice", "Alice")
	w := app.do(t, http.MethodPost, "/api/posts", alice, gin.H{
		"title": "live", "content": "<p>x</p>", "book": gin.H{"title": "b"},
	})
	var post models.Post
	decode(t, w, &post)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/posts/" + post.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() models.LiveSnapshot {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var snap models.LiveSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		return snap
	}

	if snap := read(); snap.PostID != post.ID || snap.LikesCount != 0 {
		t.Errorf("Unexpected initial snapshot %+v", snap)
	}

	if w := app.do(t, http.MethodPost, "/api/posts/"+post.ID+"/like", bearer(t, "bob", "Bob"), nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	for {
		if snap := read(); snap.LikesCount == 1 {
			break
		}
	}

	// 不存在的帖子在握手前返回 404
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/posts/missing", nil)
	if err == nil {
		t.Fatal("Expected dial error for missing post")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 handshake response, got %v", resp)
	}
}
