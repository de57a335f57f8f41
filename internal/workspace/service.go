// Package workspace はワークスペースの作成・参加・参照を提供する。
package workspace

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/repository"
	"github.com/hitoshi/fundswap/internal/shuffle"
)

const (
	// inviteCodeAlphabet は読み間違えやすい 0/O/1/I を除いた文字集合。
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength   = 6
	// maxInviteCodeAttempts は招待コード衝突時の最大試行回数。
	maxInviteCodeAttempts = 10
	maxNameLength         = 100
)

// Service はワークスペースのサービス層。
type Service struct {
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	logger        *slog.Logger

	generateCode func() (string, error)
	generateSeed func() (string, error)
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		logger:        logger,
		generateCode:  GenerateInviteCode,
		generateSeed:  shuffle.GenerateSeed,
	}
}

// Create はワークスペースを作成し、作成者をメンバーにする。
// シードは作成時に1回だけ生成され、以降変更されない。
// 招待コードが衝突した場合は新しいコードで再試行する。
func (s *Service) Create(ctx context.Context, userID, name string) (*model.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewInvalidRequestError("ワークスペース名は必須です")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("ワークスペース名は%d文字以内で指定してください", maxNameLength))
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.InWorkspace() {
		return nil, model.NewAlreadyInWorkspaceError()
	}

	seed, err := s.generateSeed()
	if err != nil {
		return nil, fmt.Errorf("シードの生成に失敗しました: %w", err)
	}

	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, fmt.Errorf("招待コードの生成に失敗しました: %w", err)
		}

		ws := &model.Workspace{
			ID:         uuid.New().String(),
			Name:       name,
			Seed:       seed,
			InviteCode: code,
			CreatedAt:  time.Now(),
		}

		err = s.workspaceRepo.CreateWithOwner(ctx, ws, user.ID)
		switch {
		case err == nil:
			s.logger.Info("ワークスペースを作成しました",
				slog.String("workspace_id", ws.ID),
				slog.String("user_id", user.ID),
				slog.Int("attempts", attempt),
			)
			return ws, nil
		case errors.Is(err, repository.ErrInviteCodeConflict):
			s.logger.Warn("招待コードが衝突したため再生成します",
				slog.Int("attempt", attempt),
			)
			continue
		case errors.Is(err, repository.ErrAlreadyInWorkspace):
			return nil, model.NewAlreadyInWorkspaceError()
		default:
			return nil, fmt.Errorf("ワークスペースの作成に失敗しました: %w", err)
		}
	}

	return nil, model.NewInviteCodeExhaustedError()
}

// Join は招待コードでワークスペースに参加する。
// 既に同じワークスペースに参加している場合は何もせずそのワークスペースを返す。
func (s *Service) Join(ctx context.Context, userID, inviteCode string) (*model.Workspace, error) {
	code := NormalizeInviteCode(inviteCode)
	if code == "" {
		return nil, model.NewInvalidRequestError("招待コードは必須です")
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.FindByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("ワークスペースの検索に失敗しました: %w", err)
	}
	if ws == nil {
		return nil, model.NewInvalidInviteCodeError(code)
	}

	if user.InWorkspace() {
		if user.WorkspaceID == ws.ID {
			return ws, nil
		}
		return nil, model.NewAlreadyInWorkspaceError()
	}

	joined, err := s.userRepo.JoinWorkspace(ctx, user.ID, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("ワークスペースへの参加に失敗しました: %w", err)
	}
	if !joined {
		return nil, model.NewAlreadyInWorkspaceError()
	}

	s.logger.Info("ワークスペースに参加しました",
		slog.String("workspace_id", ws.ID),
		slog.String("user_id", user.ID),
	)
	return ws, nil
}

// Current はユーザーが参加しているワークスペースとメンバーを返す。
// 未参加の場合はnilと空のメンバーを返す。
func (s *Service) Current(ctx context.Context, userID string) (*model.Workspace, []*model.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !user.InWorkspace() {
		return nil, []*model.User{}, nil
	}

	ws, err := s.workspaceRepo.FindByID(ctx, user.WorkspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("ワークスペースの取得に失敗しました: %w", err)
	}
	if ws == nil {
		return nil, []*model.User{}, nil
	}

	members, err := s.userRepo.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("メンバーの取得に失敗しました: %w", err)
	}
	return ws, members, nil
}

// Get は指定IDのワークスペースを取得する。見つからない場合はWORKSPACE_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("ワークスペースの取得に失敗しました: %w", err)
	}
	if ws == nil {
		return nil, model.NewWorkspaceNotFoundError(workspaceID)
	}
	return ws, nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return user, nil
}

// GenerateInviteCode は6文字の招待コードを生成する。
func GenerateInviteCode() (string, error) {
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	b := make([]byte, inviteCodeLength)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = inviteCodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// NormalizeInviteCode は空白を取り除き大文字にする。
func NormalizeInviteCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}
