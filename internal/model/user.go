// Package model はドメインモデルを定義する。
package model

import "time"

// ロールの定義済み値。
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User は掲示板サービスの利用ユーザーを表す。
// ニックネームとアバターURLはログイン時のプロバイダー情報を初期値とし、
// 以降はユーザー自身の明示的な編集操作でのみ変更される。
type User struct {
	ID        string
	Nickname  string
	AvatarURL string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// (provider, provider_user_id)の組はDB側のユニーク制約で一意性が保証される。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// LoginResult はログイン成功時に呼び出し元へ返す結果を表す。
// Tokenは署名済みのセッショントークン（Bearer）。
type LoginResult struct {
	User  *User
	Token string
}
