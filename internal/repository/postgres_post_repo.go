package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/soo/honeyboard/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, title, content, images, visibility, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.UserID, post.Title, post.Content,
		pq.Array(post.Images), int(post.Visibility), post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// FindByID は公開中の投稿を投稿者ニックネーム付きで取得する。
// 見つからない（または非表示の）場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*PostDetail, error) {
	detail := &PostDetail{}
	var visibility int
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, u.nickname, p.title, p.content, p.images, p.visibility, p.created_at, p.updated_at
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.id = $1 AND p.visibility = 0`,
		id,
	).Scan(
		&detail.ID, &detail.UserID, &detail.AuthorNickname, &detail.Title, &detail.Content,
		pq.Array(&detail.Images), &visibility, &detail.CreatedAt, &detail.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	detail.Visibility = model.Visibility(visibility)
	return detail, nil
}

// ListVisible は公開中の投稿一覧を作成日時の降順で返す。
func (r *PostgresPostRepo) ListVisible(ctx context.Context) ([]*PostDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.user_id, u.nickname, p.title, p.content, p.images, p.visibility, p.created_at, p.updated_at
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.visibility = 0
		 ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var results []*PostDetail
	for rows.Next() {
		detail := &PostDetail{}
		var visibility int
		if err := rows.Scan(
			&detail.ID, &detail.UserID, &detail.AuthorNickname, &detail.Title, &detail.Content,
			pq.Array(&detail.Images), &visibility, &detail.CreatedAt, &detail.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		detail.Visibility = model.Visibility(visibility)
		results = append(results, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}
	return results, nil
}

// ListByAuthor は指定ユーザーの公開中の投稿を作成日時の降順で返す。
func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, userID string) ([]model.PostSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.user_id, u.nickname, p.title, p.created_at
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $1 AND p.visibility = 0
		 ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}
	defer rows.Close()

	var results []model.PostSummary
	for rows.Next() {
		var s model.PostSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.AuthorNickname, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post summary row: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post summary rows: %w", err)
	}
	return results, nil
}

// ListVisibleWithLikeCounts は公開中の全投稿を総いいね数付きで作成日時の降順で返す。
// いいねが1件もない投稿のカウントは0。
func (r *PostgresPostRepo) ListVisibleWithLikeCounts(ctx context.Context) ([]model.PostWithLikeCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.user_id, u.nickname, p.title, p.created_at, COALESCE(lc.cnt, 0)
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 LEFT JOIN (
		     SELECT post_id, COUNT(*) AS cnt
		     FROM likes
		     GROUP BY post_id
		 ) lc ON lc.post_id = p.id
		 WHERE p.visibility = 0
		 ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts with like counts: %w", err)
	}
	defer rows.Close()

	var results []model.PostWithLikeCount
	for rows.Next() {
		var row model.PostWithLikeCount
		if err := rows.Scan(&row.ID, &row.UserID, &row.AuthorNickname, &row.Title, &row.CreatedAt, &row.LikeCount); err != nil {
			return nil, fmt.Errorf("failed to scan like count row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate like count rows: %w", err)
	}
	return results, nil
}

// Update はタイトルと本文を更新する。
func (r *PostgresPostRepo) Update(ctx context.Context, id, title, content string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = $1, content = $2, updated_at = now() WHERE id = $3`,
		title, content, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// UpdateImages は投稿の画像キー一覧を更新する。
func (r *PostgresPostRepo) UpdateImages(ctx context.Context, id string, images []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET images = $1, updated_at = now() WHERE id = $2`,
		pq.Array(images), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update post images: %w", err)
	}
	return nil
}

// Blind は投稿を非表示状態にする。
func (r *PostgresPostRepo) Blind(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET visibility = $1, updated_at = now() WHERE id = $2`,
		int(model.VisibilityBlinded), id,
	)
	if err != nil {
		return fmt.Errorf("failed to blind post: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
