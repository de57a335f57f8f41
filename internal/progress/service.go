// Package progress はユーザーごと・モードごとのフィード上の位置を管理する。
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/repository"
)

// FeedCounter はモードごとのフィード件数を返す。
type FeedCounter interface {
	FeedLength(ctx context.Context, mode model.Mode) (int, error)
}

// Service は進捗カーソルのサービス層。
type Service struct {
	progressRepo repository.ProgressRepository
	feeds        FeedCounter
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(progressRepo repository.ProgressRepository, feeds FeedCounter) *Service {
	return &Service{
		progressRepo: progressRepo,
		feeds:        feeds,
		now:          time.Now,
	}
}

// GetCursor は保存済みのカーソルを返す。未保存の場合は0を返す。
func (s *Service) GetCursor(ctx context.Context, userID string, mode model.Mode) (*model.ProgressCursor, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}

	cursor, err := s.progressRepo.Find(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("進捗の取得に失敗しました: %w", err)
	}
	if cursor == nil {
		return &model.ProgressCursor{
			UserID:      userID,
			Mode:        mode,
			CursorIndex: 0,
			UpdatedAt:   s.now(),
		}, nil
	}
	return cursor, nil
}

// SetCursor はカーソルを現在のフィードの有効な位置 [0, 件数-1] に収めて保存し、保存した値を返す。
// フィードが空の場合は0を保存する。
func (s *Service) SetCursor(ctx context.Context, userID string, mode model.Mode, requested int) (*model.ProgressCursor, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}
	if requested < 0 {
		return nil, model.NewInvalidCursorError(requested)
	}

	length, err := s.feeds.FeedLength(ctx, mode)
	if err != nil {
		return nil, err
	}

	cursor, err := s.progressRepo.Upsert(ctx, userID, mode, Clamp(requested, length))
	if err != nil {
		return nil, fmt.Errorf("進捗の保存に失敗しました: %w", err)
	}
	return cursor, nil
}

// ClampForFeed は保存済みのカーソルを現在のフィード件数で制限した値を返す。
// データセットが縮んだ場合に範囲外を指さないようにする。
func (s *Service) ClampForFeed(ctx context.Context, userID string, mode model.Mode, feedLength int) (int, error) {
	cursor, err := s.GetCursor(ctx, userID, mode)
	if err != nil {
		return 0, err
	}
	return Clamp(cursor.CursorIndex, feedLength), nil
}

// Clamp はcursorを [0, max(0, length-1)] に収める。
func Clamp(cursor, length int) int {
	return max(0, min(cursor, length-1))
}
