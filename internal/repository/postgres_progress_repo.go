package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fundswap/internal/model"
)

// PostgresProgressRepo はPostgreSQLを使用した進捗カーソルリポジトリ。
type PostgresProgressRepo struct {
	db *sql.DB
}

// NewPostgresProgressRepo はPostgresProgressRepoを生成する。
func NewPostgresProgressRepo(db *sql.DB) *PostgresProgressRepo {
	return &PostgresProgressRepo{db: db}
}

// Find はユーザーとモードのカーソルを取得する。未保存の場合はnilを返す。
func (r *PostgresProgressRepo) Find(ctx context.Context, userID string, mode model.Mode) (*model.ProgressCursor, error) {
	p := &model.ProgressCursor{UserID: userID, Mode: mode}
	err := r.db.QueryRowContext(ctx,
		`SELECT cursor_index, updated_at FROM user_progress WHERE user_id = $1 AND mode = $2`,
		userID, string(mode),
	).Scan(&p.CursorIndex, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("進捗の取得に失敗しました: %w", err)
	}

	return p, nil
}

// Upsert はカーソルを保存し、保存後の値を返す。
func (r *PostgresProgressRepo) Upsert(ctx context.Context, userID string, mode model.Mode, cursorIndex int) (*model.ProgressCursor, error) {
	p := &model.ProgressCursor{UserID: userID, Mode: mode}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_progress (user_id, mode, cursor_index, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, mode) DO UPDATE SET
		     cursor_index = EXCLUDED.cursor_index,
		     updated_at = EXCLUDED.updated_at
		 RETURNING cursor_index, updated_at`,
		userID, string(mode), cursorIndex,
	).Scan(&p.CursorIndex, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("進捗の保存に失敗しました: %w", err)
	}

	return p, nil
}

// compile-time interface check
var _ ProgressRepository = (*PostgresProgressRepo)(nil)
