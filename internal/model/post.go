// Package model はドメインモデルを定義する。
package model

import "time"

// Visibility は投稿・コメントの公開状態を表す。
type Visibility int

const (
	// VisibilityPublic は公開状態を示す。
	VisibilityPublic Visibility = 0
	// VisibilityBlinded は削除済み（非表示）状態を示す。
	// 行の物理削除は行わず、visibilityの更新のみで表現する。
	VisibilityBlinded Visibility = 2
)

// Post は掲示板の投稿を表す。
type Post struct {
	ID         string
	UserID     string
	Title      string
	Content    string
	Images     []string
	Visibility Visibility
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Comment は投稿に付くコメントを表す。
type Comment struct {
	ID         string
	PostID     string
	UserID     string
	Content    string
	Visibility Visibility
	CreatedAt  time.Time
}

// PostSummary は一覧表示用の投稿サマリー。投稿者ニックネームをJOINで付与する。
type PostSummary struct {
	ID             string
	UserID         string
	AuthorNickname string
	Title          string
	CreatedAt      time.Time
}

// PostWithLikeCount は公開中の投稿と、その総いいね数を束ねた集計行。
type PostWithLikeCount struct {
	PostSummary
	LikeCount int
}

// PostEngagement は閲覧ユーザー視点の投稿行を表す。
// LikedByViewerは「閲覧ユーザーがその投稿にいいねを付けているか」を示し、
// いいね一覧APIの結果行では常にtrueになる。
type PostEngagement struct {
	PostID         string
	UserID         string
	AuthorNickname string
	Title          string
	CreatedAt      time.Time
	LikeCount      int
	LikedByViewer  bool
}

// CommentWithAuthor はコメントと投稿者ニックネームを束ねた表示用の行。
type CommentWithAuthor struct {
	Comment
	AuthorNickname string
}
