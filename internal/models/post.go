package models

import (
	"time"
)

// Post 书评帖子。LikesCount 是 likes 集合的缓存计数，只能经由点赞切换修改
type Post struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	Title              string    `gorm:"not null" json:"title"`
	Content            string    `gorm:"type:text" json:"content"` // HTML
	CreatedAt          time.Time `gorm:"not null;index" json:"createdAt"`
	AuthorID           string    `gorm:"size:128;not null;index" json:"authorId"`
	AuthorName         string    `json:"authorName"`
	AuthorProfileImage string    `json:"authorProfileImage"`
	LikesCount         int64     `gorm:"not null;default:0" json:"likesCount"`

	BookTitle   string `gorm:"not null" json:"bookTitle"`
	BookLink    string `json:"bookLink"`
	BookImage   string `json:"bookImage"`
	BookAuthor  string `json:"bookAuthor"`
	BookPubDate string `gorm:"size:32" json:"bookPubDate"`

	// 非数据库字段，用于列表填充
	CommentCount int64  `gorm:"-" json:"commentCount"`
	Excerpt      string `gorm:"-" json:"excerpt,omitempty"`
	CoverImage   string `gorm:"-" json:"coverImage,omitempty"`
}

func (Post) TableName() string {
	return "posts"
}

// Book 选书时从外部检索得到的图书信息
type Book struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Image   string `json:"image"`
	Author  string `json:"author"`
	PubDate string `json:"pubdate"`
}
