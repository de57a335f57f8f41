package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/lib/pq"
)

// PostgresReflectionRepo はPostgreSQLを使用したリフレクションリポジトリ。
type PostgresReflectionRepo struct {
	db *sql.DB
}

// NewPostgresReflectionRepo はPostgresReflectionRepoを生成する。
func NewPostgresReflectionRepo(db *sql.DB) *PostgresReflectionRepo {
	return &PostgresReflectionRepo{db: db}
}

// Upsert はswipe_idをキーにリフレクションを作成または上書きする。
func (r *PostgresReflectionRepo) Upsert(ctx context.Context, reflection *model.Reflection) (*model.Reflection, error) {
	saved := &model.Reflection{}
	var chips pq.StringArray
	var note sql.NullString

	chipsArg := pq.StringArray(reflection.Chips)
	if chipsArg == nil {
		chipsArg = pq.StringArray{}
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reflections (id, swipe_id, user_id, chips, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (swipe_id) DO UPDATE SET
		     chips = EXCLUDED.chips,
		     note = EXCLUDED.note,
		     created_at = EXCLUDED.created_at
		 RETURNING id, swipe_id, user_id, chips, note, created_at`,
		reflection.ID, reflection.SwipeID, reflection.UserID, chipsArg, reflection.Note, reflection.CreatedAt,
	).Scan(&saved.ID, &saved.SwipeID, &saved.UserID, &chips, &note, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reflection: %w", err)
	}

	saved.Chips = []string(chips)
	if note.Valid {
		saved.Note = &note.String
	}
	return saved, nil
}

// ListBySwipeIDs は指定スワイプに付いたリフレクションを作成日時の昇順で返す。
func (r *PostgresReflectionRepo) ListBySwipeIDs(ctx context.Context, swipeIDs []string) ([]*model.Reflection, error) {
	if len(swipeIDs) == 0 {
		return nil, nil
	}

	query, args, err := psql.
		Select("id", "swipe_id", "user_id", "chips", "note", "created_at").
		From("reflections").
		Where(sq.Eq{"swipe_id": swipeIDs}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reflection query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reflections: %w", err)
	}
	defer rows.Close()

	var reflections []*model.Reflection
	for rows.Next() {
		ref := &model.Reflection{}
		var chips pq.StringArray
		var note sql.NullString
		if err := rows.Scan(&ref.ID, &ref.SwipeID, &ref.UserID, &chips, &note, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reflection: %w", err)
		}
		ref.Chips = []string(chips)
		if note.Valid {
			ref.Note = &note.String
		}
		reflections = append(reflections, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reflections: %w", err)
	}

	return reflections, nil
}

// compile-time interface check
var _ ReflectionRepository = (*PostgresReflectionRepo)(nil)
