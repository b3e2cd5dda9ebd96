// Package board は掲示板のドメインロジックを提供する。
package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
	"github.com/soo/honeyboard/internal/security"
	"github.com/soo/honeyboard/internal/storage"
)

// ImagePayload はアップロードされた画像1件分のデータ。
type ImagePayload struct {
	Data        []byte
	ContentType string
}

// Service は投稿・コメントに関するビジネスロジックを提供する。
type Service struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	sanitizer   security.ContentSanitizerService
	images      storage.ImageStore // nilの場合、画像アップロードは無効
}

// NewService はServiceを生成する。
// imagesがnilの場合、画像アップロード機能は無効として動作する。
func NewService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	sanitizer security.ContentSanitizerService,
	images storage.ImageStore,
) *Service {
	return &Service{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		sanitizer:   sanitizer,
		images:      images,
	}
}

// CreatePost は投稿を作成する。
// タイトルはタグ除去、本文は許可リストベースでサニタイズしてから保存する。
func (s *Service) CreatePost(ctx context.Context, userID, title, content string) (*model.Post, error) {
	title = strings.TrimSpace(s.sanitizer.SanitizeText(title))
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です")
	}
	content = s.sanitizer.Sanitize(content)
	if strings.TrimSpace(content) == "" {
		return nil, model.NewInvalidRequestError("本文は必須です")
	}

	now := time.Now()
	post := &model.Post{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      title,
		Content:    content,
		Images:     []string{},
		Visibility: model.VisibilityPublic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", userID),
	)
	return post, nil
}

// GetPost は公開中の投稿を投稿者ニックネーム付きで取得する。
func (s *Service) GetPost(ctx context.Context, postID string) (*repository.PostDetail, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return post, nil
}

// ListPosts は公開中の投稿一覧を作成日時の降順で返す。
func (s *Service) ListPosts(ctx context.Context) ([]*repository.PostDetail, error) {
	posts, err := s.postRepo.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if posts == nil {
		posts = []*repository.PostDetail{}
	}
	return posts, nil
}

// UpdatePost はタイトルと本文を更新する。投稿の所有者のみが実行できる。
func (s *Service) UpdatePost(ctx context.Context, postID, userID, title, content string) (*repository.PostDetail, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	if post.UserID != userID {
		return nil, model.NewNotPostOwnerError()
	}

	title = strings.TrimSpace(s.sanitizer.SanitizeText(title))
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です")
	}
	content = s.sanitizer.Sanitize(content)
	if strings.TrimSpace(content) == "" {
		return nil, model.NewInvalidRequestError("本文は必須です")
	}

	if err := s.postRepo.Update(ctx, postID, title, content); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	updated, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch post: %w", err)
	}
	return updated, nil
}

// DeletePost は投稿を非表示状態にする。行の物理削除は行わない。
// 投稿の所有者のみが実行できる。
func (s *Service) DeletePost(ctx context.Context, postID, userID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}
	if post.UserID != userID {
		return model.NewNotPostOwnerError()
	}

	if err := s.postRepo.Blind(ctx, postID); err != nil {
		return fmt.Errorf("failed to blind post: %w", err)
	}

	slog.Info("post blinded",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}

// ListComments は指定投稿の公開中コメントを作成日時の昇順で返す。
func (s *Service) ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if comments == nil {
		comments = []model.CommentWithAuthor{}
	}
	return comments, nil
}

// AttachImages は画像をストレージへ保存し、公開URLを投稿に記録する。
// 途中で失敗した場合、保存済みの画像はベストエフォートで削除する。
// 投稿の所有者のみが実行できる。ストレージが未設定の場合はエラーを返す。
func (s *Service) AttachImages(ctx context.Context, postID, userID string, payloads []ImagePayload) (*repository.PostDetail, error) {
	if s.images == nil {
		return nil, model.NewUploadFailedError()
	}
	if len(payloads) == 0 {
		return nil, model.NewInvalidRequestError("画像が指定されていません")
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	if post.UserID != userID {
		return nil, model.NewNotPostOwnerError()
	}

	keys := make([]string, 0, len(payloads))
	urls := make([]string, 0, len(payloads))
	for _, p := range payloads {
		key, err := s.images.Upload(ctx, p.Data, p.ContentType)
		if err != nil {
			slog.Error("image upload failed",
				slog.String("post_id", postID),
				slog.String("error", err.Error()),
			)
			s.removeUploaded(ctx, keys)
			return nil, model.NewUploadFailedError()
		}
		keys = append(keys, key)
		urls = append(urls, s.images.PublicURL(key))
	}

	merged := append(append([]string{}, post.Images...), urls...)
	if err := s.postRepo.UpdateImages(ctx, postID, merged); err != nil {
		s.removeUploaded(ctx, keys)
		return nil, fmt.Errorf("failed to record image URLs: %w", err)
	}

	updated, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch post: %w", err)
	}
	return updated, nil
}

// removeUploaded は投稿への記録に至らなかったアップロード済み画像を削除する。
// 削除失敗はログに残すのみで呼び出し元のエラーを上書きしない。
func (s *Service) removeUploaded(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.images.Delete(ctx, key); err != nil {
			slog.Warn("failed to remove uploaded image",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
