package models

import (
	"time"
)

type ReactionKind string

const (
	ReactionLike     ReactionKind = "like"
	ReactionBookmark ReactionKind = "bookmark"
)

// Collection 每种反应存放在独立的集合（表）中
func (k ReactionKind) Collection() string {
	if k == ReactionBookmark {
		return "bookmarks"
	}
	return "likes"
}

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionBookmark
}

// Reaction 用户对帖子的点赞/收藏记录，likes 与 bookmarks 共用此结构
type Reaction struct {
	ID        string       `gorm:"primaryKey;size:255" json:"id"`
	UserID    string       `gorm:"size:128;not null;index" json:"userId"`
	PostID    string       `gorm:"size:64;not null;index" json:"postId"`
	Kind      ReactionKind `gorm:"size:16;not null" json:"kind"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

// ReactionID 同一 (kind, post, user) 只对应一个文档 ID，重复插入即为冲突
func ReactionID(kind ReactionKind, postID, userID string) string {
	return string(kind) + ":" + postID + ":" + userID
}

// Like / Bookmark 仅用于建表，索引名随各自表名生成
type Like struct {
	Reaction
}

func (Like) TableName() string {
	return "likes"
}

type Bookmark struct {
	Reaction
}

func (Bookmark) TableName() string {
	return "bookmarks"
}
