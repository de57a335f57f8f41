package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
)

// PostgresMatchRepo はPostgreSQLを使用したマッチリポジトリ。
type PostgresMatchRepo struct {
	db *sql.DB
}

// NewPostgresMatchRepo はPostgresMatchRepoを生成する。
func NewPostgresMatchRepo(db *sql.DB) *PostgresMatchRepo {
	return &PostgresMatchRepo{db: db}
}

// CreateIfAbsent はマッチを挿入する。既に存在する場合は何もしない。
// 同時に複数のリクエストが挿入しても、UNIQUE(workspace_id, fundraise_id, mode)により1件だけが残る。
func (r *PostgresMatchRepo) CreateIfAbsent(ctx context.Context, match *model.Match) (*model.Match, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (id, workspace_id, fundraise_id, mode, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (workspace_id, fundraise_id, mode) DO NOTHING
		 RETURNING id`,
		match.ID, match.WorkspaceID, match.FundraiseID, string(match.Mode), match.CreatedAt,
	).Scan(&id)

	if err == nil {
		created := *match
		created.ID = id
		return &created, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("マッチの作成に失敗しました: %w", err)
	}

	// 競合した場合は既存のマッチを読み直す
	existing := &model.Match{}
	var mode string
	err = r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, fundraise_id, mode, created_at
		 FROM matches WHERE workspace_id = $1 AND fundraise_id = $2 AND mode = $3`,
		match.WorkspaceID, match.FundraiseID, string(match.Mode),
	).Scan(&existing.ID, &existing.WorkspaceID, &existing.FundraiseID, &mode, &existing.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("既存マッチの取得に失敗しました: %w", err)
	}
	existing.Mode = model.Mode(mode)

	return existing, false, nil
}

// ListByWorkspace はワークスペースのマッチを新しい順で返す。
func (r *PostgresMatchRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, fundraise_id, mode, created_at
		 FROM matches WHERE workspace_id = $1
		 ORDER BY created_at DESC, id DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		m := &model.Match{}
		var mode string
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.FundraiseID, &mode, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("マッチのスキャンに失敗しました: %w", err)
		}
		m.Mode = model.Mode(mode)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マッチ一覧の走査に失敗しました: %w", err)
	}

	return matches, nil
}

// FindByIDAndWorkspace はワークスペースに属するマッチを取得する。見つからない場合はnilを返す。
func (r *PostgresMatchRepo) FindByIDAndWorkspace(ctx context.Context, id, workspaceID string) (*model.Match, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	m := &model.Match{}
	var mode string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, fundraise_id, mode, created_at
		 FROM matches WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&m.ID, &m.WorkspaceID, &m.FundraiseID, &mode, &m.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("マッチの取得に失敗しました: %w", err)
	}
	m.Mode = model.Mode(mode)

	return m, nil
}

// compile-time interface check
var _ MatchRepository = (*PostgresMatchRepo)(nil)
