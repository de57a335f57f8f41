// Package swipe はスワイプの記録とマッチ判定を行う。
package swipe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/metrics"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/repository"
)

// minMatchMembers はマッチが成立するために必要なワークスペースの最少人数。
const minMatchMembers = 2

// FundraiseFinder はモードごとのデータセットから調達を検索する。
// 見つからない場合はFUNDRAISE_NOT_FOUNDエラーを返す。
type FundraiseFinder interface {
	FindFundraise(ctx context.Context, mode model.Mode, id string) (*model.Fundraise, error)
}

// Result はスワイプ記録の結果。
type Result struct {
	SwipeID   string
	Decision  model.Decision
	CreatedAt time.Time
	// MatchCreated はこの呼び出しでマッチを新規作成した場合にtrue。
	MatchCreated bool
	// Matched は呼び出し後にワークスペース・調達・モードのマッチが存在する場合にtrue。
	Matched bool
	MatchID string
}

// Service はスワイプとマッチ判定のサービス層。
type Service struct {
	swipeRepo     repository.SwipeRepository
	matchRepo     repository.MatchRepository
	userRepo      repository.UserRepository
	workspaceRepo repository.WorkspaceRepository
	fundraises    FundraiseFinder
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	swipeRepo repository.SwipeRepository,
	matchRepo repository.MatchRepository,
	userRepo repository.UserRepository,
	workspaceRepo repository.WorkspaceRepository,
	fundraises FundraiseFinder,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		swipeRepo:     swipeRepo,
		matchRepo:     matchRepo,
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		fundraises:    fundraises,
		metrics:       mc,
		logger:        logger,
	}
}

// RecordSwipe はスワイプを記録し、いいねの場合はマッチ判定を行う。
// フロー: 調達の存在確認 → ワークスペース確認 → スワイプのアップサート →
// メンバー取得 → メンバーのいいね数確認 → マッチの作成（既存なら何もしない）
//
// 同じ(ワークスペース, 調達, モード)のマッチは同時に判定が走っても1件しか作られない。
func (s *Service) RecordSwipe(
	ctx context.Context,
	userID, workspaceID, fundraiseID string,
	mode model.Mode,
	decision model.Decision,
) (*Result, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}
	if _, err := model.ParseDecision(string(decision)); err != nil {
		return nil, err
	}

	// 1. 調達とワークスペースの存在確認
	if _, err := s.fundraises.FindFundraise(ctx, mode, fundraiseID); err != nil {
		return nil, err
	}
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("ワークスペースの取得に失敗しました: %w", err)
	}
	if ws == nil {
		return nil, model.NewWorkspaceNotFoundError(workspaceID)
	}

	// 2. スワイプのアップサート（再スワイプは上書き）
	swipe, err := s.swipeRepo.Upsert(ctx, &model.Swipe{
		ID:          uuid.New().String(),
		UserID:      userID,
		FundraiseID: fundraiseID,
		Mode:        mode,
		Decision:    decision,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("スワイプの保存に失敗しました: %w", err)
	}
	s.metrics.RecordSwipe(string(mode), string(decision))

	result := &Result{
		SwipeID:   swipe.ID,
		Decision:  swipe.Decision,
		CreatedAt: swipe.CreatedAt,
	}

	// 3. パスはマッチ判定しない
	if decision != model.DecisionLike {
		return result, nil
	}

	match, created, err := s.evaluateMatch(ctx, ws.ID, fundraiseID, mode)
	if err != nil {
		return nil, err
	}
	if match != nil {
		result.Matched = true
		result.MatchID = match.ID
		result.MatchCreated = created
	}

	if created {
		s.metrics.RecordMatchCreated(string(mode))
		s.logger.Info("マッチが成立しました",
			slog.String("workspace_id", ws.ID),
			slog.String("fundraise_id", fundraiseID),
			slog.String("mode", string(mode)),
			slog.String("match_id", match.ID),
		)
	}

	return result, nil
}

// evaluateMatch は全メンバーが同じ調達にいいねしている場合にマッチを作成する。
// 条件を満たさない場合はnilを返す。
func (s *Service) evaluateMatch(ctx context.Context, workspaceID, fundraiseID string, mode model.Mode) (*model.Match, bool, error) {
	// 4. 判定時点のメンバーを取得
	members, err := s.userRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, false, fmt.Errorf("メンバーの取得に失敗しました: %w", err)
	}
	if len(members) < minMatchMembers {
		return nil, false, nil
	}

	// 5. メンバーのいいねを数える
	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	likes, err := s.swipeRepo.ListLikes(ctx, fundraiseID, mode, memberIDs)
	if err != nil {
		return nil, false, fmt.Errorf("いいねの取得に失敗しました: %w", err)
	}
	liked := make(map[string]struct{}, len(likes))
	for _, l := range likes {
		liked[l.UserID] = struct{}{}
	}
	if len(liked) < len(members) {
		return nil, false, nil
	}

	// 6. マッチを作成（既存の場合は既存を返す）
	match, created, err := s.matchRepo.CreateIfAbsent(ctx, &model.Match{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		FundraiseID: fundraiseID,
		Mode:        mode,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("マッチの保存に失敗しました: %w", err)
	}
	return match, created, nil
}
