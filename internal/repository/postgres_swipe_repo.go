package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
)

// PostgresSwipeRepo はPostgreSQLを使用したスワイプリポジトリ。
type PostgresSwipeRepo struct {
	db *sql.DB
}

// NewPostgresSwipeRepo はPostgresSwipeRepoを生成する。
func NewPostgresSwipeRepo(db *sql.DB) *PostgresSwipeRepo {
	return &PostgresSwipeRepo{db: db}
}

// Upsert は(user_id, fundraise_id, mode)をキーにスワイプを作成または上書きする。
// UNIQUE制約を利用したINSERT ON CONFLICTで、既存行のIDを維持したまま判定と日時を更新する。
func (r *PostgresSwipeRepo) Upsert(ctx context.Context, swipe *model.Swipe) (*model.Swipe, error) {
	saved := &model.Swipe{}
	var mode, decision string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO swipe_decisions (id, user_id, fundraise_id, mode, decision, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, fundraise_id, mode) DO UPDATE SET
		     decision = EXCLUDED.decision,
		     created_at = EXCLUDED.created_at
		 RETURNING id, user_id, fundraise_id, mode, decision, created_at`,
		swipe.ID, swipe.UserID, swipe.FundraiseID, string(swipe.Mode), string(swipe.Decision), swipe.CreatedAt,
	).Scan(&saved.ID, &saved.UserID, &saved.FundraiseID, &mode, &decision, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("スワイプの保存に失敗しました: %w", err)
	}
	saved.Mode = model.Mode(mode)
	saved.Decision = model.Decision(decision)
	return saved, nil
}

// FindByID は指定IDのスワイプを取得する。見つからない場合はnilを返す。
func (r *PostgresSwipeRepo) FindByID(ctx context.Context, id string) (*model.Swipe, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	s := &model.Swipe{}
	var mode, decision string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, fundraise_id, mode, decision, created_at
		 FROM swipe_decisions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.UserID, &s.FundraiseID, &mode, &decision, &s.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スワイプの取得に失敗しました: %w", err)
	}
	s.Mode = model.Mode(mode)
	s.Decision = model.Decision(decision)
	return s, nil
}

// ListLikes は指定メンバーのうち、調達にいいねしているスワイプを返す。
func (r *PostgresSwipeRepo) ListLikes(ctx context.Context, fundraiseID string, mode model.Mode, userIDs []string) ([]*model.Swipe, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := psql.
		Select("id", "user_id", "fundraise_id", "mode", "decision", "created_at").
		From("swipe_decisions").
		Where(sq.Eq{
			"fundraise_id": fundraiseID,
			"mode":         string(mode),
			"decision":     string(model.DecisionLike),
			"user_id":      userIDs,
		}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("いいね検索クエリの構築に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("いいねの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var swipes []*model.Swipe
	for rows.Next() {
		s := &model.Swipe{}
		var m, d string
		if err := rows.Scan(&s.ID, &s.UserID, &s.FundraiseID, &m, &d, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("いいねのスキャンに失敗しました: %w", err)
		}
		s.Mode = model.Mode(m)
		s.Decision = model.Decision(d)
		swipes = append(swipes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("いいねの走査に失敗しました: %w", err)
	}

	return swipes, nil
}

// compile-time interface check
var _ SwipeRepository = (*PostgresSwipeRepo)(nil)
