package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSummary 从帖子 HTML 正文中提取纯文本摘要和第一张图片
type HTMLSummary struct {
	Excerpt    string
	FirstImage string
}

// SummarizeHTML 摘要按 rune 截断到 maxRunes，超出部分以 "..." 结尾
func SummarizeHTML(htmlStr string, maxRunes int) HTMLSummary {
	if strings.TrimSpace(htmlStr) == "" {
		return HTMLSummary{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return HTMLSummary{Excerpt: truncateRunes(strings.TrimSpace(htmlStr), maxRunes)}
	}

	var summary HTMLSummary
	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			summary.FirstImage = strings.TrimSpace(src)
			return false
		}
		return true
	})

	// 块级元素之间补空格，避免段落文字粘连
	doc.Find("p, br, li, h1, h2, h3, h4, div").Each(func(i int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	summary.Excerpt = truncateRunes(text, maxRunes)
	return summary
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
