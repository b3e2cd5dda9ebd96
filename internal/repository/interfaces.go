// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/soo/honeyboard/internal/model"
)

// ErrDuplicateIdentity はidentityのユニーク制約違反を表す。
// 同一provider_user_idによる初回ログインが並行した場合にのみ発生し、
// 呼び出し側は既存レコードを再取得して処理を継続する。
var ErrDuplicateIdentity = errors.New("identity already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// identityのユニーク制約に違反した場合はErrDuplicateIdentityを返す。
	// その場合usersの挿入もロールバックされ、部分適用は起こらない。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateNickname はニックネームを更新し、更新後のユーザーを返す。
	UpdateNickname(ctx context.Context, id, nickname string) (*model.User, error)

	// UpdateAvatarURL はアバターURLを更新し、更新後のユーザーを返す。
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) (*model.User, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は公開中の投稿を投稿者ニックネーム付きで取得する。
	// 見つからない（または非表示の）場合はnilを返す。
	FindByID(ctx context.Context, id string) (*PostDetail, error)

	// ListVisible は公開中の投稿一覧を作成日時の降順で返す。
	ListVisible(ctx context.Context) ([]*PostDetail, error)

	// ListByAuthor は指定ユーザーの公開中の投稿を作成日時の降順で返す。
	ListByAuthor(ctx context.Context, userID string) ([]model.PostSummary, error)

	// ListVisibleWithLikeCounts は公開中の全投稿を総いいね数付きで
	// 作成日時の降順で返す。いいねが1件もない投稿のカウントは0。
	ListVisibleWithLikeCounts(ctx context.Context) ([]model.PostWithLikeCount, error)

	// Update はタイトルと本文を更新する。updated_atも更新される。
	Update(ctx context.Context, id, title, content string) error

	// UpdateImages は投稿の画像キー一覧を更新する。
	UpdateImages(ctx context.Context, id string, images []string) error

	// Blind は投稿を非表示状態にする。行の物理削除は行わない。
	Blind(ctx context.Context, id string) error
}

// LikeRepository はいいねデータの読み取りインターフェース。
// いいねの作成・削除はこのコアの外（別コンポーネント）が担う。
type LikeRepository interface {
	// ListPostIDsByUser は指定ユーザーがいいねした投稿IDの一覧を返す。
	ListPostIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// ListByPost は指定投稿の公開中コメントを投稿者ニックネーム付きで
	// 作成日時の昇順で返す。
	ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}

// PostDetail は投稿と投稿者ニックネームを結合した構造体。
type PostDetail struct {
	model.Post
	AuthorNickname string
}
