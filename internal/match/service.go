// Package match はワークスペースのマッチ一覧と詳細を提供する。
// 各マッチには調達の情報と、いいねしたメンバーのリフレクションを付けて返す。
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/repository"
)

// FundraiseFinder はモードごとのデータセットから調達を検索する。
type FundraiseFinder interface {
	FindFundraise(ctx context.Context, mode model.Mode, id string) (*model.Fundraise, error)
}

// MemberReflection はマッチした調達にいいねしたメンバー1人分の情報。
type MemberReflection struct {
	UserID      string
	UserName    string
	DisplayName string
	Chips       []string
	Note        *string
	LikedAt     time.Time
}

// Summary はマッチと付随情報。
type Summary struct {
	Match *model.Match
	// Fundraise はデータセットに存在しない場合nil。
	Fundraise   *model.Fundraise
	Reflections []MemberReflection
}

// Service はマッチ参照のサービス層。
type Service struct {
	matchRepo      repository.MatchRepository
	swipeRepo      repository.SwipeRepository
	userRepo       repository.UserRepository
	reflectionRepo repository.ReflectionRepository
	fundraises     FundraiseFinder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	matchRepo repository.MatchRepository,
	swipeRepo repository.SwipeRepository,
	userRepo repository.UserRepository,
	reflectionRepo repository.ReflectionRepository,
	fundraises FundraiseFinder,
) *Service {
	return &Service{
		matchRepo:      matchRepo,
		swipeRepo:      swipeRepo,
		userRepo:       userRepo,
		reflectionRepo: reflectionRepo,
		fundraises:     fundraises,
	}
}

// List はワークスペースのマッチを新しい順で返す。
// データセットから消えた調達のマッチもFundraiseをnilにして含める。
func (s *Service) List(ctx context.Context, workspaceID string) ([]*Summary, error) {
	matches, err := s.matchRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}
	if len(matches) == 0 {
		return []*Summary{}, nil
	}

	e, err := s.newEnricher(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*Summary, 0, len(matches))
	for _, m := range matches {
		summary, err := e.summarize(ctx, m)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	if err := e.attachReflections(ctx, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Get はワークスペースに属するマッチの詳細を返す。
// マッチが存在しない場合はMATCH_NOT_FOUND、調達がデータセットにない場合はFUNDRAISE_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, workspaceID, matchID string) (*Summary, error) {
	m, err := s.matchRepo.FindByIDAndWorkspace(ctx, matchID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("マッチの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMatchNotFoundError(matchID)
	}

	e, err := s.newEnricher(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	summary, err := e.summarize(ctx, m)
	if err != nil {
		return nil, err
	}
	if summary.Fundraise == nil {
		return nil, model.NewFundraiseNotFoundError(m.FundraiseID, m.Mode)
	}

	if err := e.attachReflections(ctx, []*Summary{summary}); err != nil {
		return nil, err
	}
	return summary, nil
}

// enricher は1回の呼び出しの間メンバー情報といいねを保持する。
type enricher struct {
	s         *Service
	members   map[string]*model.User
	memberIDs []string
	likes     map[*Summary][]*model.Swipe
}

func (s *Service) newEnricher(ctx context.Context, workspaceID string) (*enricher, error) {
	members, err := s.userRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("メンバーの取得に失敗しました: %w", err)
	}
	e := &enricher{
		s:         s,
		members:   make(map[string]*model.User, len(members)),
		memberIDs: make([]string, 0, len(members)),
		likes:     make(map[*Summary][]*model.Swipe),
	}
	for _, u := range members {
		e.members[u.ID] = u
		e.memberIDs = append(e.memberIDs, u.ID)
	}
	return e, nil
}

func (e *enricher) summarize(ctx context.Context, m *model.Match) (*Summary, error) {
	f, err := e.s.fundraises.FindFundraise(ctx, m.Mode, m.FundraiseID)
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeFundraiseNotFound:
		f = nil
	case err != nil:
		return nil, err
	}

	likes, err := e.s.swipeRepo.ListLikes(ctx, m.FundraiseID, m.Mode, e.memberIDs)
	if err != nil {
		return nil, fmt.Errorf("いいねの取得に失敗しました: %w", err)
	}

	summary := &Summary{Match: m, Fundraise: f}
	e.likes[summary] = likes
	return summary, nil
}

// attachReflections はいいねごとのリフレクションをまとめて取得し、各Summaryに付ける。
func (e *enricher) attachReflections(ctx context.Context, summaries []*Summary) error {
	var swipeIDs []string
	for _, summary := range summaries {
		for _, like := range e.likes[summary] {
			swipeIDs = append(swipeIDs, like.ID)
		}
	}

	bySwipe := make(map[string]*model.Reflection)
	if len(swipeIDs) > 0 {
		reflections, err := e.s.reflectionRepo.ListBySwipeIDs(ctx, swipeIDs)
		if err != nil {
			return fmt.Errorf("リフレクションの取得に失敗しました: %w", err)
		}
		for _, r := range reflections {
			bySwipe[r.SwipeID] = r
		}
	}

	for _, summary := range summaries {
		likes := e.likes[summary]
		summary.Reflections = make([]MemberReflection, 0, len(likes))
		for _, like := range likes {
			mr := MemberReflection{
				UserID:  like.UserID,
				Chips:   []string{},
				LikedAt: like.CreatedAt,
			}
			if u, ok := e.members[like.UserID]; ok {
				mr.UserName = u.Name
				mr.DisplayName = u.DisplayName
			}
			if r, ok := bySwipe[like.ID]; ok {
				if r.Chips != nil {
					mr.Chips = r.Chips
				}
				mr.Note = r.Note
			}
			summary.Reflections = append(summary.Reflections, mr)
		}
	}
	return nil
}
