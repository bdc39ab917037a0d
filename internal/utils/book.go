package utils

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	plainText   = bluemonday.StrictPolicy()
	compactDate = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
)

// StripMarkup 去掉检索结果中的 <b> 高亮等标签，只保留文本
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// FormatBookDate 20230105 -> 2023-01-05，其他格式原样返回
func FormatBookDate(s string) string {
	return compactDate.ReplaceAllString(strings.TrimSpace(s), "$1-$2-$3")
}
