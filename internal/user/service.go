// Package user はユーザープロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
	"github.com/soo/honeyboard/internal/security"
)

// ニックネームの最大文字数（rune単位）。
const maxNicknameLength = 20

// Service はユーザープロフィールのサービス層。
// ログイン時に意図的に行わないプロフィール更新を、明示的な操作として提供する。
type Service struct {
	userRepo  repository.UserRepository
	postRepo  repository.PostRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		userRepo:  userRepo,
		postRepo:  postRepo,
		sanitizer: sanitizer,
	}
}

// GetUserInfo は指定IDのユーザー情報を取得する。
func (s *Service) GetUserInfo(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// EditNickname はニックネームを更新し、更新後のユーザーを返す。
func (s *Service) EditNickname(ctx context.Context, userID, nickname string) (*model.User, error) {
	nickname = strings.TrimSpace(s.sanitizer.SanitizeText(nickname))
	if nickname == "" {
		return nil, model.NewInvalidRequestError("ニックネームは必須です")
	}
	if len([]rune(nickname)) > maxNicknameLength {
		return nil, model.NewInvalidRequestError("ニックネームが長すぎます")
	}

	user, err := s.userRepo.UpdateNickname(ctx, userID, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to update nickname: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("nickname updated", slog.String("user_id", userID))
	return user, nil
}

// EditAvatar はアバターURLを更新し、更新後のユーザーを返す。
// httpsスキーム以外のURLは受け付けない。
func (s *Service) EditAvatar(ctx context.Context, userID, avatarURL string) (*model.User, error) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL != "" && !strings.HasPrefix(avatarURL, "https://") {
		return nil, model.NewInvalidRequestError("アバターURLはhttpsで始まる必要があります")
	}

	user, err := s.userRepo.UpdateAvatarURL(ctx, userID, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("avatar updated", slog.String("user_id", userID))
	return user, nil
}

// GetUserPosts は指定ユーザーの公開中の投稿を作成日時の降順で返す。
func (s *Service) GetUserPosts(ctx context.Context, userID string) ([]model.PostSummary, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	posts, err := s.postRepo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
	}
	if posts == nil {
		posts = []model.PostSummary{}
	}
	return posts, nil
}
