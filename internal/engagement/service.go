// Package engagement はいいねに基づく投稿の集計機能を提供する。
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soo/honeyboard/internal/model"
	"github.com/soo/honeyboard/internal/repository"
)

// Service はいいね集計に関するビジネスロジックを提供する。
type Service struct {
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
}

// NewService はServiceを生成する。
func NewService(postRepo repository.PostRepository, likeRepo repository.LikeRepository) *Service {
	return &Service{
		postRepo: postRepo,
		likeRepo: likeRepo,
	}
}

// ListLikedPosts は指定ユーザーがいいねした公開中の投稿を、
// 各投稿の総いいね数付きで作成日時の降順で返す。
// 非表示になった投稿はいいね済みであっても結果に含まれない。
// いいねが1件もない場合は空スライスを返す（nilではない）。
func (s *Service) ListLikedPosts(ctx context.Context, userID string) ([]model.PostEngagement, error) {
	// 公開投稿の集計と、ユーザーのいいね一覧は互いに独立なので並行で取得する
	var (
		wg        sync.WaitGroup
		posts     []model.PostWithLikeCount
		likedIDs  []string
		postsErr  error
		likedErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		posts, postsErr = s.postRepo.ListVisibleWithLikeCounts(ctx)
	}()
	go func() {
		defer wg.Done()
		likedIDs, likedErr = s.likeRepo.ListPostIDsByUser(ctx, userID)
	}()
	wg.Wait()

	if postsErr != nil {
		return nil, fmt.Errorf("failed to list posts with like counts: %w", postsErr)
	}
	if likedErr != nil {
		return nil, fmt.Errorf("failed to list liked post IDs: %w", likedErr)
	}

	liked := make(map[string]struct{}, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = struct{}{}
	}

	// 公開投稿の並び順（作成日時降順）を維持したままいいね済みだけを抽出する
	results := make([]model.PostEngagement, 0, len(liked))
	for _, p := range posts {
		if _, ok := liked[p.ID]; !ok {
			continue
		}
		results = append(results, model.PostEngagement{
			PostID:         p.ID,
			UserID:         p.UserID,
			AuthorNickname: p.AuthorNickname,
			Title:          p.Title,
			CreatedAt:      p.CreatedAt,
			LikeCount:      p.LikeCount,
			LikedByViewer:  true,
		})
	}

	slog.Debug("listed liked posts",
		slog.String("user_id", userID),
		slog.Int("liked_total", len(likedIDs)),
		slog.Int("visible_liked", len(results)),
	)

	return results, nil
}
