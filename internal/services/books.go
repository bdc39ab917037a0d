package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"booklog/internal/models"
	"booklog/internal/utils"
)

const bookSearchDisplay = 10

// naverBookResponse Naver 图书检索接口的响应
type naverBookResponse struct {
	Total int `json:"total"`
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Image   string `json:"image"`
		Author  string `json:"author"`
		PubDate string `json:"pubdate"`
	} `json:"items"`
}

// BookSearchService 发布帖子时选书用的外部图书检索
type BookSearchService struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewBookSearchService(baseURL, clientID, clientSecret string) *BookSearchService {
	return &BookSearchService{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *BookSearchService) Search(ctx context.Context, query string) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationErr("search query is empty")
	}
	if s.clientID == "" || s.clientSecret == "" {
		return nil, fmt.Errorf("%w: NAVER_CLIENT_ID / NAVER_CLIENT_SECRET 未配置", ErrUpstream)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", fmt.Sprint(bookSearchDisplay))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: 创建请求失败: %v", ErrUpstream, err)
	}
	req.Header.Set("X-Naver-Client-Id", s.clientID)
	req.Header.Set("X-Naver-Client-Secret", s.clientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[books] request failed: %v", err)
		return nil, fmt.Errorf("%w: 请求失败: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应失败: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[books] upstream status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var result naverBookResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: 解析响应失败: %v", ErrUpstream, err)
	}

	books := make([]models.Book, 0, len(result.Items))
	for _, item := range result.Items {
		books = append(books, models.Book{
			Title:   utils.StripMarkup(item.Title),
			Link:    item.Link,
			Image:   item.Image,
			Author:  utils.StripMarkup(item.Author),
			PubDate: utils.FormatBookDate(item.PubDate),
		})
	}
	return books, nil
}
