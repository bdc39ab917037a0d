package models

import (
	"time"
)

type Comment struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	PostID      string    `gorm:"size:64;not null;index" json:"postId"`
	AuthorID    string    `gorm:"size:128;not null;index" json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorImage string    `json:"authorImage"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
	// 编辑为原地修改，不保留历史
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
}

func (Comment) TableName() string {
	return "comments"
}
