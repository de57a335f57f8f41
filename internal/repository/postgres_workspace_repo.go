package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
)

// PostgresWorkspaceRepo はPostgreSQLを使用したワークスペースリポジトリ。
type PostgresWorkspaceRepo struct {
	db *sql.DB
}

// NewPostgresWorkspaceRepo はPostgresWorkspaceRepoを生成する。
func NewPostgresWorkspaceRepo(db *sql.DB) *PostgresWorkspaceRepo {
	return &PostgresWorkspaceRepo{db: db}
}

// FindByID は指定IDのワークスペースを取得する。見つからない場合はnilを返す。
func (r *PostgresWorkspaceRepo) FindByID(ctx context.Context, id string) (*model.Workspace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByInviteCode は招待コードでワークスペースを取得する。見つからない場合はnilを返す。
func (r *PostgresWorkspaceRepo) FindByInviteCode(ctx context.Context, code string) (*model.Workspace, error) {
	return r.findOne(ctx, `WHERE invite_code = $1`, code)
}

func (r *PostgresWorkspaceRepo) findOne(ctx context.Context, where string, arg string) (*model.Workspace, error) {
	ws := &model.Workspace{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, seed, invite_code, created_at FROM workspaces `+where,
		arg,
	).Scan(&ws.ID, &ws.Name, &ws.Seed, &ws.InviteCode, &ws.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	return ws, nil
}

// CreateWithOwner はワークスペースを作成し、作成者を同一トランザクションでメンバーにする。
func (r *PostgresWorkspaceRepo) CreateWithOwner(ctx context.Context, ws *model.Workspace, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, seed, invite_code, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ws.ID, ws.Name, ws.Seed, ws.InviteCode, ws.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "workspaces_invite_code_key") {
			return ErrInviteCodeConflict
		}
		return fmt.Errorf("failed to insert workspace: %w", err)
	}

	// 未参加のユーザーだけを参加させる
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET workspace_id = $2 WHERE id = $1 AND workspace_id IS NULL`,
		ownerID, ws.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign workspace owner: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyInWorkspace
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ WorkspaceRepository = (*PostgresWorkspaceRepo)(nil)
