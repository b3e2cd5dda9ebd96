package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soo/honeyboard/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// ListByPost は指定投稿の公開中コメントを投稿者ニックネーム付きで
// 作成日時の昇順で返す。
func (r *PostgresCommentRepo) ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, u.nickname, c.content, c.visibility, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = $1 AND c.visibility = 0
		 ORDER BY c.created_at ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var results []model.CommentWithAuthor
	for rows.Next() {
		var row model.CommentWithAuthor
		var visibility int
		if err := rows.Scan(
			&row.ID, &row.PostID, &row.UserID, &row.AuthorNickname,
			&row.Content, &visibility, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		row.Visibility = model.Visibility(visibility)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment rows: %w", err)
	}
	return results, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
