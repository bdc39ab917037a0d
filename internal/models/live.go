package models

import "time"

// LiveSnapshot 推送给订阅者的帖子实时计数
type LiveSnapshot struct {
	PostID       string    `json:"postId"`
	LikesCount   int64     `json:"likesCount"`
	CommentCount int64     `json:"commentCount"`
	At           time.Time `json:"at"`
}
