// Package feed はモードごとの調達フィードを組み立てる。
//
// archiveはワークスペースのシードで決定的にシャッフルし、同じワークスペースの
// メンバーは全員同じ順序で同じ調達を見る。recentは発表日時の新しい順に並べ、
// シードは使わない。フィードは保存せず、リクエストのたびに計算し直す。
package feed

import (
	"context"
	"fmt"
	"slices"

	"github.com/hitoshi/fundswap/internal/dataset"
	"github.com/hitoshi/fundswap/internal/metrics"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/shuffle"
)

// DatasetProvider はロード済みデータセットへのアクセスを提供する。
// dataset.Storeが実装する。
type DatasetProvider interface {
	Dataset(ctx context.Context, mode model.Mode) ([]model.Fundraise, error)
	Find(ctx context.Context, mode model.Mode, id string) (*model.Fundraise, error)
	Stats(ctx context.Context) (dataset.Stats, error)
}

var _ DatasetProvider = (*dataset.Store)(nil)

// Assembler はフィードの組み立てを行うサービス層。
type Assembler struct {
	datasets DatasetProvider
	metrics  metrics.MetricsCollector
}

// NewAssembler はAssemblerの新しいインスタンスを生成する。
func NewAssembler(datasets DatasetProvider, mc metrics.MetricsCollector) *Assembler {
	return &Assembler{datasets: datasets, metrics: mc}
}

// GetFeed は指定モードのフィードを返す。
// データセットが未ロードの場合はロード完了まで待ち、部分的な結果は返さない。
func (a *Assembler) GetFeed(ctx context.Context, mode model.Mode, seed string) ([]model.Fundraise, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}

	records, err := a.datasets.Dataset(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("データセットの取得に失敗しました: %w", err)
	}

	var feed []model.Fundraise
	switch mode {
	case model.ModeArchive:
		feed = shuffle.Shuffle(records, fundraiseID, seed)
	case model.ModeRecent:
		feed = SortRecent(records)
	}

	a.metrics.RecordFeedServed(string(mode), len(feed))
	return feed, nil
}

// FeedLength は指定モードのフィードの件数を返す。
// 並び順は件数に影響しないため、シャッフルせずにデータセットの件数を返す。
func (a *Assembler) FeedLength(ctx context.Context, mode model.Mode) (int, error) {
	if !mode.Valid() {
		return 0, model.NewInvalidModeError(string(mode))
	}
	records, err := a.datasets.Dataset(ctx, mode)
	if err != nil {
		return 0, fmt.Errorf("データセットの取得に失敗しました: %w", err)
	}
	return len(records), nil
}

// FindFundraise は指定モードのデータセットから調達を取得する。
// 存在しない場合はFUNDRAISE_NOT_FOUNDエラーを返す。
func (a *Assembler) FindFundraise(ctx context.Context, mode model.Mode, id string) (*model.Fundraise, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}
	f, err := a.datasets.Find(ctx, mode, id)
	if err != nil {
		return nil, fmt.Errorf("調達の検索に失敗しました: %w", err)
	}
	if f == nil {
		return nil, model.NewFundraiseNotFoundError(id, mode)
	}
	return f, nil
}

// Stats は各データセットの件数を返す。
func (a *Assembler) Stats(ctx context.Context) (dataset.Stats, error) {
	return a.datasets.Stats(ctx)
}

// SortRecent は発表日時の新しい順に並べたコピーを返す。
// 同時刻のレコードは入力順を保つ。
func SortRecent(records []model.Fundraise) []model.Fundraise {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.Fundraise) int {
		return b.AnnouncedAt.Compare(a.AnnouncedAt)
	})
	return sorted
}

func fundraiseID(f model.Fundraise) string {
	return f.ID
}
