package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/soo/honeyboard/internal/metrics"
	"github.com/soo/honeyboard/internal/middleware"
	"github.com/soo/honeyboard/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetUserInfo(ctx context.Context, userID string) (*model.User, error)
	EditNickname(ctx context.Context, userID, nickname string) (*model.User, error)
	EditAvatar(ctx context.Context, userID, avatarURL string) (*model.User, error)
	GetUserPosts(ctx context.Context, userID string) ([]model.PostSummary, error)
}

// EngagementServiceInterface はいいね一覧集計のサービスインターフェース。
type EngagementServiceInterface interface {
	ListLikedPosts(ctx context.Context, userID string) ([]model.PostEngagement, error)
}

// UserHandler はユーザープロフィールと閲覧系のHTTPハンドラー。
type UserHandler struct {
	service    UserServiceInterface
	engagement EngagementServiceInterface
	metrics    metrics.MetricsCollector // nilの場合は記録しない
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, engagement EngagementServiceInterface, collector metrics.MetricsCollector) *UserHandler {
	return &UserHandler{
		service:    service,
		engagement: engagement,
		metrics:    collector,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

// postSummaryResponse は投稿サマリーのAPIレスポンス。
type postSummaryResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AuthorNickname string    `json:"author_nickname"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

// engagementResponse はいいね一覧の行のAPIレスポンス。
type engagementResponse struct {
	PostID         string    `json:"post_id"`
	UserID         string    `json:"user_id"`
	AuthorNickname string    `json:"author_nickname"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	LikeCount      int       `json:"like_count"`
	LikedByViewer  bool      `json:"liked_by_viewer"`
}

// editNicknameRequest はニックネーム更新リクエストのボディ。
type editNicknameRequest struct {
	Nickname string `json:"nickname"`
}

// editAvatarRequest はアバターURL更新リクエストのボディ。
type editAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

// Me は現在のログインユーザー情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetUserInfo(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// EditNickname はニックネームを更新する。
// PUT /api/users/me/nickname
func (h *UserHandler) EditNickname(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req editNicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, err := h.service.EditNickname(r.Context(), userID, req.Nickname)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// EditAvatar はアバターURLを更新する。
// PUT /api/users/me/image
func (h *UserHandler) EditAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req editAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, err := h.service.EditAvatar(r.Context(), userID, req.AvatarURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// GetUserPosts は指定ユーザーの投稿一覧を返す。
// GET /api/users/:id/posts
func (h *UserHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	posts, err := h.service.GetUserPosts(r.Context(), targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postSummaryResponse, len(posts))
	for i, p := range posts {
		results[i] = postSummaryResponse{
			ID:             p.ID,
			UserID:         p.UserID,
			AuthorNickname: p.AuthorNickname,
			Title:          p.Title,
			CreatedAt:      p.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// ListLikedPosts は指定ユーザーがいいねした投稿の一覧を返す。
// 自分自身のいいね一覧のみ閲覧できる。
// GET /api/users/:id/likes
func (h *UserHandler) ListLikedPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID != userID {
		middleware.WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
			Code:     "NOT_LIKES_OWNER",
			Message:  "他のユーザーのいいね一覧は閲覧できません。",
			Category: "auth",
			Action:   "自分のいいね一覧のみ閲覧できます。",
		})
		return
	}

	start := time.Now()
	rows, err := h.engagement.ListLikedPosts(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordLikedPostsLatency(time.Since(start))
	}

	results := make([]engagementResponse, len(rows))
	for i, row := range rows {
		results[i] = engagementResponse{
			PostID:         row.PostID,
			UserID:         row.UserID,
			AuthorNickname: row.AuthorNickname,
			Title:          row.Title,
			CreatedAt:      row.CreatedAt,
			LikeCount:      row.LikeCount,
			LikedByViewer:  row.LikedByViewer,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Nickname:  user.Nickname,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
	}
}
