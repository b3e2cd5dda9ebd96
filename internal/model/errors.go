// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, board, config, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeExternalAuth   = "EXTERNAL_AUTH_FAILED"
	ErrCodeConfigMissing  = "CONFIG_MISSING"
	ErrCodeStore          = "STORE_ERROR"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodePostNotFound   = "POST_NOT_FOUND"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"
	ErrCodeNotPostOwner   = "NOT_POST_OWNER"
	ErrCodeUploadFailed   = "UPLOAD_FAILED"
	ErrCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
)

// NewExternalAuthError は外部認証の失敗エラーを生成する。
// プロバイダーから受け取ったトークンはreasonに含めてはならない。
func NewExternalAuthError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeExternalAuth,
		Message:  fmt.Sprintf("ソーシャルログインに失敗しました: %s", reason),
		Category: "auth",
		Action:   "もう一度ログインし直してください。",
	}
}

// NewConfigError は必須設定の欠落エラーを生成する。
// 起動時または初回利用時に致命的エラーとして扱う。
func NewConfigError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeConfigMissing,
		Message:  fmt.Sprintf("必須の設定が未指定です: %s", name),
		Category: "config",
		Action:   "サーバーの環境変数設定を確認してください。",
	}
}

// NewStoreError はデータストア操作の失敗エラーを生成する。
// 原因の詳細はログにのみ残し、レスポンスには含めない。
func NewStoreError() *APIError {
	return &APIError{
		Code:     ErrCodeStore,
		Message:  "データの保存・取得に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidRequestError はリクエスト形式の不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "board",
		Action:   "投稿IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotPostOwnerError は投稿の所有者以外による編集・削除エラーを生成する。
func NewNotPostOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotPostOwner,
		Message:  "この投稿を編集する権限がありません。",
		Category: "board",
		Action:   "自分が作成した投稿のみ編集・削除できます。",
	}
}

// NewUploadFailedError は画像アップロードの失敗エラーを生成する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "画像のアップロードに失敗しました。",
		Category: "board",
		Action:   "時間をおいて再度お試しください。",
	}
}

// NewRateLimitedError はリクエスト頻度の超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "時間をおいて再度お試しください。",
	}
}
