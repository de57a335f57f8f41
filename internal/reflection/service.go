// Package reflection はいいねしたスワイプへのタグとメモの保存を提供する。
package reflection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/repository"
	"github.com/hitoshi/fundswap/internal/security"
)

const (
	maxChips     = 20
	maxChipRunes = 50
	maxNoteRunes = 2000
)

// Service はリフレクションのサービス層。
type Service struct {
	swipeRepo      repository.SwipeRepository
	reflectionRepo repository.ReflectionRepository
	sanitizer      security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(swipeRepo repository.SwipeRepository, reflectionRepo repository.ReflectionRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		swipeRepo:      swipeRepo,
		reflectionRepo: reflectionRepo,
		sanitizer:      sanitizer,
	}
}

// Save はスワイプにリフレクションを保存する。既にある場合は上書きする。
// スワイプは本人のもので、かついいねでなければならない。
func (s *Service) Save(ctx context.Context, userID, swipeID string, chips []string, note string) (*model.Reflection, error) {
	if swipeID == "" {
		return nil, model.NewInvalidRequestError("swipeIdは必須です")
	}
	if len(chips) > maxChips {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("chipsは%d個以内で指定してください", maxChips))
	}

	swipe, err := s.swipeRepo.FindByID(ctx, swipeID)
	if err != nil {
		return nil, fmt.Errorf("スワイプの取得に失敗しました: %w", err)
	}
	// 他人のスワイプは存在しないものとして扱う
	if swipe == nil || swipe.UserID != userID {
		return nil, model.NewSwipeNotFoundError(swipeID)
	}
	if swipe.Decision != model.DecisionLike {
		return nil, model.NewReflectionNotAllowedError()
	}

	reflection := &model.Reflection{
		ID:        uuid.New().String(),
		SwipeID:   swipe.ID,
		UserID:    userID,
		Chips:     s.cleanChips(chips),
		CreatedAt: time.Now(),
	}
	if cleaned := s.sanitizer.CleanLimit(note, maxNoteRunes); cleaned != "" {
		reflection.Note = &cleaned
	}

	saved, err := s.reflectionRepo.Upsert(ctx, reflection)
	if err != nil {
		return nil, fmt.Errorf("リフレクションの保存に失敗しました: %w", err)
	}
	return saved, nil
}

// cleanChips はタグを無害化し、空のものを除いて入力順で返す。
func (s *Service) cleanChips(chips []string) []string {
	out := make([]string, 0, len(chips))
	for _, c := range chips {
		if cleaned := s.sanitizer.CleanLimit(c, maxChipRunes); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
