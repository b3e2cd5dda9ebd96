package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/soo/honeyboard/internal/board"
	"github.com/soo/honeyboard/internal/metrics"
	"github.com/soo/honeyboard/internal/middleware"
	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
)

// 画像アップロードリクエストの最大サイズ。
const maxImageUploadBytes = 10 << 20 // 10MB

// BoardServiceInterface は掲示板ハンドラーが必要とするサービスインターフェース。
type BoardServiceInterface interface {
	CreatePost(ctx context.Context, userID, title, content string) (*model.Post, error)
	GetPost(ctx context.Context, postID string) (*repository.PostDetail, error)
	ListPosts(ctx context.Context) ([]*repository.PostDetail, error)
	UpdatePost(ctx context.Context, postID, userID, title, content string) (*repository.PostDetail, error)
	DeletePost(ctx context.Context, postID, userID string) error
	ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
	AttachImages(ctx context.Context, postID, userID string, payloads []board.ImagePayload) (*repository.PostDetail, error)
}

// BoardHandler は投稿・コメントのHTTPハンドラー。
type BoardHandler struct {
	service BoardServiceInterface
	metrics metrics.MetricsCollector // nilの場合は記録しない
}

// NewBoardHandler はBoardHandlerを生成する。
func NewBoardHandler(service BoardServiceInterface, collector metrics.MetricsCollector) *BoardHandler {
	return &BoardHandler{
		service: service,
		metrics: collector,
	}
}

// postRequest は投稿の作成・更新リクエストのボディ。
type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// postResponse は投稿詳細のAPIレスポンス。
type postResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AuthorNickname string    `json:"author_nickname"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Images         []string  `json:"images"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// commentResponse はコメントのAPIレスポンス。
type commentResponse struct {
	ID             string    `json:"id"`
	PostID         string    `json:"post_id"`
	UserID         string    `json:"user_id"`
	AuthorNickname string    `json:"author_nickname"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreatePost は投稿を作成する。
// POST /api/boards
func (h *BoardHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	post, err := h.service.CreatePost(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPostCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(postResponse{
		ID:        post.ID,
		UserID:    post.UserID,
		Title:     post.Title,
		Content:   post.Content,
		Images:    post.Images,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	})
}

// ListPosts は公開中の投稿一覧を返す。
// GET /api/boards
func (h *BoardHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postResponse, len(posts))
	for i, p := range posts {
		results[i] = toPostResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// GetPost は投稿詳細を返す。
// GET /api/boards/:id
func (h *BoardHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	post, err := h.service.GetPost(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponse(post))
}

// UpdatePost は投稿のタイトルと本文を更新する。
// PUT /api/boards/:id
func (h *BoardHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	postID := chi.URLParam(r, "id")

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	post, err := h.service.UpdatePost(r.Context(), postID, userID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponse(post))
}

// DeletePost は投稿を非表示にする。
// DELETE /api/boards/:id
func (h *BoardHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	postID := chi.URLParam(r, "id")

	if err := h.service.DeletePost(r.Context(), postID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListComments は投稿のコメント一覧を返す。
// GET /api/boards/:id/comments
func (h *BoardHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	comments, err := h.service.ListComments(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]commentResponse, len(comments))
	for i, c := range comments {
		results[i] = commentResponse{
			ID:             c.ID,
			PostID:         c.PostID,
			UserID:         c.UserID,
			AuthorNickname: c.AuthorNickname,
			Content:        c.Content,
			CreatedAt:      c.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// AttachImages は投稿に画像を添付する。multipart/form-dataのimagesフィールドを受け取る。
// POST /api/boards/:id/images
func (h *BoardHandler) AttachImages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	postID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("multipart形式のリクエストが必要です"))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("画像が指定されていません"))
		return
	}

	payloads := make([]board.ImagePayload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("画像の読み取りに失敗しました"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("画像の読み取りに失敗しました"))
			return
		}
		payloads = append(payloads, board.ImagePayload{
			Data:        data,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}

	post, err := h.service.AttachImages(r.Context(), postID, userID, payloads)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordImageUploaded(len(payloads))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponse(post))
}

// --- ヘルパー関数 ---

// toPostResponse はrepository.PostDetailからAPIレスポンスに変換する。
func toPostResponse(post *repository.PostDetail) postResponse {
	images := post.Images
	if images == nil {
		images = []string{}
	}
	return postResponse{
		ID:             post.ID,
		UserID:         post.UserID,
		AuthorNickname: post.AuthorNickname,
		Title:          post.Title,
		Content:        post.Content,
		Images:         images,
		CreatedAt:      post.CreatedAt,
		UpdatedAt:      post.UpdatedAt,
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeExternalAuth, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeNotPostOwner:
		return http.StatusForbidden
	case model.ErrCodePostNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
