package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/soo/honeyboard/internal/board"
	"github.com/soo/honeyboard/internal/middleware"
	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
)

// mockBoardService はBoardServiceInterfaceのテスト用実装。
type mockBoardService struct {
	createPostFn   func(ctx context.Context, userID, title, content string) (*model.Post, error)
	getPostFn      func(ctx context.Context, postID string) (*repository.PostDetail, error)
	listPostsFn    func(ctx context.Context) ([]*repository.PostDetail, error)
	updatePostFn   func(ctx context.Context, postID, userID, title, content string) (*repository.PostDetail, error)
	deletePostFn   func(ctx context.Context, postID, userID string) error
	listCommentsFn func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
	attachImagesFn func(ctx context.Context, postID, userID string, payloads []board.ImagePayload) (*repository.PostDetail, error)
}

func (m *mockBoardService) CreatePost(ctx context.Context, userID, title, content string) (*model.Post, error) {
	return m.createPostFn(ctx, userID, title, content)
}

func (m *mockBoardService) GetPost(ctx context.Context, postID string) (*repository.PostDetail, error) {
	return m.getPostFn(ctx, postID)
}

func (m *mockBoardService) ListPosts(ctx context.Context) ([]*repository.PostDetail, error) {
	return m.listPostsFn(ctx)
}

func (m *mockBoardService) UpdatePost(ctx context.Context, postID, userID, title, content string) (*repository.PostDetail, error) {
	return m.updatePostFn(ctx, postID, userID, title, content)
}

func (m *mockBoardService) DeletePost(ctx context.Context, postID, userID string) error {
	return m.deletePostFn(ctx, postID, userID)
}

func (m *mockBoardService) ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	return m.listCommentsFn(ctx, postID)
}

func (m *mockBoardService) AttachImages(ctx context.Context, postID, userID string, payloads []board.ImagePayload) (*repository.PostDetail, error) {
	return m.attachImagesFn(ctx, postID, userID, payloads)
}

var _ BoardServiceInterface = (*mockBoardService)(nil)

// authedRequest は認証済みユーザーIDをコンテキストに持つリクエストを生成する。
func authedRequest(t *testing.T, method, target string, body *bytes.Buffer, userID string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func samplePostDetail(id, userID, title string) *repository.PostDetail {
	return &repository.PostDetail{
		Post: model.Post{
			ID:         id,
			UserID:     userID,
			Title:      title,
			Content:    "<p>本文</p>",
			Images:     []string{},
			Visibility: model.VisibilityPublic,
			CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			UpdatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		AuthorNickname: "soo",
	}
}

func TestCreatePost_Success_Returns201(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		createPostFn: func(ctx context.Context, userID, title, content string) (*model.Post, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return &model.Post{
				ID:      "post-1",
				UserID:  userID,
				Title:   title,
				Content: content,
				Images:  []string{},
			}, nil
		},
	}, nil)

	reqBody := bytes.NewBufferString(`{"title":"はじめての投稿","content":"<p>こんにちは</p>"}`)
	req := authedRequest(t, http.MethodPost, "/api/boards", reqBody, "user-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var body postResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.ID != "post-1" {
		t.Errorf("id = %q, want post-1", body.ID)
	}
	if body.Title != "はじめての投稿" {
		t.Errorf("title = %q, want はじめての投稿", body.Title)
	}
}

func TestCreatePost_NoAuth_Returns401(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{}, nil)

	reqBody := bytes.NewBufferString(`{"title":"t","content":"c"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/boards", reqBody)
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestCreatePost_ValidationError_Returns400(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		createPostFn: func(ctx context.Context, userID, title, content string) (*model.Post, error) {
			return nil, model.NewInvalidRequestError("タイトルは必須です")
		},
	}, nil)

	reqBody := bytes.NewBufferString(`{"title":"","content":"c"}`)
	req := authedRequest(t, http.MethodPost, "/api/boards", reqBody, "user-1")
	w := httptest.NewRecorder()

	h.CreatePost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body middleware.ErrorResponseBody
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", body.Code)
	}
}

func TestGetPost_Found_ReturnsDetail(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		getPostFn: func(ctx context.Context, postID string) (*repository.PostDetail, error) {
			if postID != "post-1" {
				t.Errorf("postID = %q, want post-1", postID)
			}
			return samplePostDetail("post-1", "user-1", "タイトル"), nil
		},
	}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/boards/post-1", nil), "id", "post-1")
	w := httptest.NewRecorder()

	h.GetPost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body postResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.AuthorNickname != "soo" {
		t.Errorf("author_nickname = %q, want soo", body.AuthorNickname)
	}
}

func TestGetPost_NotFound_Returns404(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		getPostFn: func(ctx context.Context, postID string) (*repository.PostDetail, error) {
			return nil, model.NewPostNotFoundError(postID)
		},
	}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/boards/missing", nil), "id", "missing")
	w := httptest.NewRecorder()

	h.GetPost(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestListPosts_ReturnsArray(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		listPostsFn: func(ctx context.Context) ([]*repository.PostDetail, error) {
			return []*repository.PostDetail{
				samplePostDetail("post-2", "user-1", "新しい投稿"),
				samplePostDetail("post-1", "user-2", "古い投稿"),
			}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
	w := httptest.NewRecorder()

	h.ListPosts(w, req)

	var body []postResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("len = %d, want 2", len(body))
	}
	if body[0].ID != "post-2" {
		t.Errorf("first id = %q, want post-2", body[0].ID)
	}
}

func TestListPosts_Empty_ReturnsEmptyArray(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		listPostsFn: func(ctx context.Context) ([]*repository.PostDetail, error) {
			return []*repository.PostDetail{}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
	w := httptest.NewRecorder()

	h.ListPosts(w, req)

	// nullではなく[]が返ること
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestUpdatePost_NotOwner_Returns403(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		updatePostFn: func(ctx context.Context, postID, userID, title, content string) (*repository.PostDetail, error) {
			return nil, model.NewNotPostOwnerError()
		},
	}, nil)

	reqBody := bytes.NewBufferString(`{"title":"改変","content":"c"}`)
	req := withURLParam(authedRequest(t, http.MethodPut, "/api/boards/post-1", reqBody, "user-2"), "id", "post-1")
	w := httptest.NewRecorder()

	h.UpdatePost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	var body middleware.ErrorResponseBody
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != model.ErrCodeNotPostOwner {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeNotPostOwner)
	}
}

func TestDeletePost_Success_Returns204(t *testing.T) {
	deleted := false
	h := NewBoardHandler(&mockBoardService{
		deletePostFn: func(ctx context.Context, postID, userID string) error {
			if postID != "post-1" || userID != "user-1" {
				t.Errorf("DeletePost(%q, %q), want (post-1, user-1)", postID, userID)
			}
			deleted = true
			return nil
		},
	}, nil)

	req := withURLParam(authedRequest(t, http.MethodDelete, "/api/boards/post-1", nil, "user-1"), "id", "post-1")
	w := httptest.NewRecorder()

	h.DeletePost(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if !deleted {
		t.Error("DeletePost should be called")
	}
}

func TestListComments_ReturnsComments(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		listCommentsFn: func(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
			return []model.CommentWithAuthor{
				{
					Comment: model.Comment{
						ID:      "comment-1",
						PostID:  postID,
						UserID:  "user-2",
						Content: "いいですね",
					},
					AuthorNickname: "hana",
				},
			}, nil
		},
	}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/boards/post-1/comments", nil), "id", "post-1")
	w := httptest.NewRecorder()

	h.ListComments(w, req)

	var body []commentResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("len = %d, want 1", len(body))
	}
	if body[0].AuthorNickname != "hana" {
		t.Errorf("author_nickname = %q, want hana", body[0].AuthorNickname)
	}
}

func TestAttachImages_MultipartUpload_PassesPayloads(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		attachImagesFn: func(ctx context.Context, postID, userID string, payloads []board.ImagePayload) (*repository.PostDetail, error) {
			if len(payloads) != 2 {
				t.Fatalf("payloads = %d, want 2", len(payloads))
			}
			if string(payloads[0].Data) != "fake-jpeg-data" {
				t.Errorf("first payload data = %q", payloads[0].Data)
			}
			detail := samplePostDetail(postID, userID, "タイトル")
			detail.Images = []string{"images/a.jpg", "images/b.jpg"}
			return detail, nil
		},
	}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i, data := range []string{"fake-jpeg-data", "fake-png-data"} {
		part, err := mw.CreateFormFile("images", []string{"a.jpg", "b.png"}[i])
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write([]byte(data))
	}
	mw.Close()

	req := authedRequest(t, http.MethodPost, "/api/boards/post-1/images", &buf, "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.AttachImages(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body postResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Images) != 2 {
		t.Errorf("images = %v, want 2 keys", body.Images)
	}
}

func TestAttachImages_NoFiles_Returns400(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no images here")
	mw.Close()

	req := authedRequest(t, http.MethodPost, "/api/boards/post-1/images", &buf, "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.AttachImages(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAttachImages_UploadFailed_Returns502(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{
		attachImagesFn: func(ctx context.Context, postID, userID string, payloads []board.ImagePayload) (*repository.PostDetail, error) {
			return nil, model.NewUploadFailedError()
		},
	}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("images", "a.jpg")
	part.Write([]byte("data"))
	mw.Close()

	req := authedRequest(t, http.MethodPost, "/api/boards/post-1/images", &buf, "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.AttachImages(w, req)

	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadGateway)
	}
}

func TestMapAPIErrorToHTTPStatus_Mapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeExternalAuth, http.StatusUnauthorized},
		{model.ErrCodeUnauthorized, http.StatusUnauthorized},
		{model.ErrCodeInvalidRequest, http.StatusBadRequest},
		{model.ErrCodeNotPostOwner, http.StatusForbidden},
		{model.ErrCodePostNotFound, http.StatusNotFound},
		{model.ErrCodeUserNotFound, http.StatusNotFound},
		{model.ErrCodeUploadFailed, http.StatusBadGateway},
		{model.ErrCodeStore, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code})
			if got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
