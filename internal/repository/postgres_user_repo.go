package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
)

// psql はPostgreSQLのプレースホルダ形式を使うクエリビルダ。
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const userColumns = "id, name, display_name, COALESCE(workspace_id::text, ''), created_at"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.DisplayName, &user.WorkspaceID, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByName はログイン名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByName(ctx context.Context, name string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = $1`,
		name,
	).Scan(&user.ID, &user.Name, &user.DisplayName, &user.WorkspaceID, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by name: %w", err)
	}

	return user, nil
}

// List はログイン可能な全ユーザーを名前順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	return r.queryUsers(ctx, psql.Select(userColumns).From("users").OrderBy("name ASC"))
}

// ListByWorkspace はワークスペースのメンバーを参加順で返す。
func (r *PostgresUserRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.User, error) {
	return r.queryUsers(ctx, psql.Select(userColumns).
		From("users").
		Where(sq.Eq{"workspace_id": workspaceID}).
		OrderBy("created_at ASC", "id ASC"))
}

func (r *PostgresUserRepo) queryUsers(ctx context.Context, builder sq.SelectBuilder) ([]*model.User, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.DisplayName, &u.WorkspaceID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// JoinWorkspace はユーザーをワークスペースに参加させる。
// 既に別のワークスペースに参加している場合はfalseを返し、何も変更しない。
func (r *PostgresUserRepo) JoinWorkspace(ctx context.Context, userID, workspaceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET workspace_id = $2
		 WHERE id = $1 AND (workspace_id IS NULL OR workspace_id = $2)`,
		userID, workspaceID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to join workspace: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Upsert は名前をキーにユーザーを作成または表示名を更新する。
// ワークスペースの所属は変更しない。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	saved := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, name, display_name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET display_name = EXCLUDED.display_name
		 RETURNING `+userColumns,
		user.ID, user.Name, user.DisplayName, user.CreatedAt,
	).Scan(&saved.ID, &saved.Name, &saved.DisplayName, &saved.WorkspaceID, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return saved, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
