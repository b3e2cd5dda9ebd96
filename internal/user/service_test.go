package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
	"github.com/soo/honeyboard/internal/security"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*model.User, error)
	updateNicknameFn  func(ctx context.Context, id, nickname string) (*model.User, error)
	updateAvatarURLFn func(ctx context.Context, id, avatarURL string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(_ context.Context, _ *model.User, _ *model.Identity) error {
	return nil
}

func (m *mockUserRepo) UpdateNickname(ctx context.Context, id, nickname string) (*model.User, error) {
	if m.updateNicknameFn != nil {
		return m.updateNicknameFn(ctx, id, nickname)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) (*model.User, error) {
	if m.updateAvatarURLFn != nil {
		return m.updateAvatarURLFn(ctx, id, avatarURL)
	}
	return nil, nil
}

type mockPostRepo struct {
	listByAuthorFn func(ctx context.Context, userID string) ([]model.PostSummary, error)
}

func (m *mockPostRepo) Create(_ context.Context, _ *model.Post) error { return nil }

func (m *mockPostRepo) FindByID(_ context.Context, _ string) (*repository.PostDetail, error) {
	return nil, nil
}

func (m *mockPostRepo) ListVisible(_ context.Context) ([]*repository.PostDetail, error) {
	return nil, nil
}

func (m *mockPostRepo) ListByAuthor(ctx context.Context, userID string) ([]model.PostSummary, error) {
	if m.listByAuthorFn != nil {
		return m.listByAuthorFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockPostRepo) ListVisibleWithLikeCounts(_ context.Context) ([]model.PostWithLikeCount, error) {
	return nil, nil
}

func (m *mockPostRepo) Update(_ context.Context, _, _, _ string) error { return nil }

func (m *mockPostRepo) UpdateImages(_ context.Context, _ string, _ []string) error { return nil }

func (m *mockPostRepo) Blind(_ context.Context, _ string) error { return nil }

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.PostRepository = (*mockPostRepo)(nil)

func newTestService(userRepo *mockUserRepo, postRepo *mockPostRepo) *Service {
	return NewService(userRepo, postRepo, security.NewContentSanitizer())
}

// --- テスト ---

func TestGetUserInfo_ReturnsUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Nickname: "soo", Role: model.RoleUser}, nil
		},
	}
	svc := newTestService(userRepo, &mockPostRepo{})

	user, err := svc.GetUserInfo(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserInfo() error = %v", err)
	}
	if user.Nickname != "soo" {
		t.Errorf("nickname = %q, want soo", user.Nickname)
	}
}

func TestGetUserInfo_NotFound_ReturnsUserNotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockPostRepo{})

	_, err := svc.GetUserInfo(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

func TestEditNickname_UpdatesAndReturnsUser(t *testing.T) {
	var gotNickname string
	userRepo := &mockUserRepo{
		updateNicknameFn: func(_ context.Context, id, nickname string) (*model.User, error) {
			gotNickname = nickname
			return &model.User{ID: id, Nickname: nickname}, nil
		},
	}
	svc := newTestService(userRepo, &mockPostRepo{})

	user, err := svc.EditNickname(context.Background(), "user-1", "  soo2  ")
	if err != nil {
		t.Fatalf("EditNickname() error = %v", err)
	}
	if gotNickname != "soo2" {
		t.Errorf("stored nickname = %q, want soo2 (trimmed)", gotNickname)
	}
	if user.Nickname != "soo2" {
		t.Errorf("returned nickname = %q, want soo2", user.Nickname)
	}
}

func TestEditNickname_StripsHTMLTags(t *testing.T) {
	var gotNickname string
	userRepo := &mockUserRepo{
		updateNicknameFn: func(_ context.Context, id, nickname string) (*model.User, error) {
			gotNickname = nickname
			return &model.User{ID: id, Nickname: nickname}, nil
		},
	}
	svc := newTestService(userRepo, &mockPostRepo{})

	_, err := svc.EditNickname(context.Background(), "user-1", "<b>soo</b>")
	if err != nil {
		t.Fatalf("EditNickname() error = %v", err)
	}
	if gotNickname != "soo" {
		t.Errorf("stored nickname = %q, want soo (tags stripped)", gotNickname)
	}
}

func TestEditNickname_Empty_ReturnsInvalidRequest(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockPostRepo{})

	_, err := svc.EditNickname(context.Background(), "user-1", "   ")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestEditNickname_TooLong_ReturnsInvalidRequest(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockPostRepo{})

	long := "あいうえおかきくけこさしすせそたちつてとな" // 21文字
	_, err := svc.EditNickname(context.Background(), "user-1", long)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestEditAvatar_NonHTTPS_ReturnsInvalidRequest(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockPostRepo{})

	_, err := svc.EditAvatar(context.Background(), "user-1", "http://img.example.com/a.png")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestEditAvatar_HTTPS_Updates(t *testing.T) {
	userRepo := &mockUserRepo{
		updateAvatarURLFn: func(_ context.Context, id, avatarURL string) (*model.User, error) {
			return &model.User{ID: id, AvatarURL: avatarURL}, nil
		},
	}
	svc := newTestService(userRepo, &mockPostRepo{})

	user, err := svc.EditAvatar(context.Background(), "user-1", "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("EditAvatar() error = %v", err)
	}
	if user.AvatarURL != "https://img.example.com/a.png" {
		t.Errorf("avatarURL = %q", user.AvatarURL)
	}
}

func TestGetUserPosts_ReturnsPostsNewestFirst(t *testing.T) {
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Nickname: "soo"}, nil
		},
	}
	postRepo := &mockPostRepo{
		listByAuthorFn: func(_ context.Context, userID string) ([]model.PostSummary, error) {
			return []model.PostSummary{
				{ID: "post-2", UserID: userID, Title: "second", CreatedAt: newer},
				{ID: "post-1", UserID: userID, Title: "first", CreatedAt: older},
			}, nil
		},
	}
	svc := newTestService(userRepo, postRepo)

	posts, err := svc.GetUserPosts(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserPosts() error = %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "post-2" {
		t.Errorf("posts = %+v, want newest first", posts)
	}
}

func TestGetUserPosts_UnknownUser_ReturnsUserNotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockPostRepo{})

	_, err := svc.GetUserPosts(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}
