package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/fundswap/internal/metrics"
	"github.com/hitoshi/fundswap/internal/model"
)

// State はStoreのロード状態を表す。
type State int

const (
	// StateUnloaded は未ロード、または直前のロードが失敗した状態。
	StateUnloaded State = iota
	// StateLoading はロード中の状態。他の呼び出し元はこの完了を待つ。
	StateLoading
	// StateLoaded はロード済みの状態。以降データセットは変更されない。
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats はロード済みデータセットの件数。
type Stats struct {
	ArchiveCount int
	RecentCount  int
}

// snapshot はロード済みの不変なデータセット。
type snapshot struct {
	records map[model.Mode][]model.Fundraise
	index   map[model.Mode]map[string]int
}

// Store はarchiveとrecentのデータセットをプロセス内で1回だけロードして保持する。
//
// 同時に複数のリクエストが到着しても取得元へのアクセスは1回に限られ、
// 後続の呼び出し元は進行中のロードの完了を待つ。ロードに失敗した場合は
// 未ロード状態に戻り、次の呼び出しで再試行する。
type Store struct {
	sources map[model.Mode]Source
	loader  *Loader
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	done  chan struct{} // Loading中のみ非nil。ロード完了時にcloseする
	err   error         // 直前のロードの結果
	data  *snapshot
}

// NewStore はStoreを生成する。ロードは最初のEnsure呼び出しまで行わない。
func NewStore(archive, recent Source, loader *Loader, mc metrics.MetricsCollector, logger *slog.Logger) *Store {
	return &Store{
		sources: map[model.Mode]Source{
			model.ModeArchive: archive,
			model.ModeRecent:  recent,
		},
		loader:  loader,
		metrics: mc,
		logger:  logger,
	}
}

// State は現在のロード状態を返す。
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ensure はデータセットがロード済みであることを保証する。
// 未ロードならこの呼び出しでロードし、ロード中なら完了まで待つ。
func (s *Store) Ensure(ctx context.Context) error {
	_, err := s.ensure(ctx)
	return err
}

// Dataset は指定モードのデータセットを返す。返却値は呼び出し元で変更してはならない。
func (s *Store) Dataset(ctx context.Context, mode model.Mode) ([]model.Fundraise, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}
	snap, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return snap.records[mode], nil
}

// Find は指定モードのデータセットからIDで調達を検索する。見つからない場合はnilを返す。
func (s *Store) Find(ctx context.Context, mode model.Mode, id string) (*model.Fundraise, error) {
	if !mode.Valid() {
		return nil, model.NewInvalidModeError(string(mode))
	}
	snap, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := snap.index[mode][id]
	if !ok {
		return nil, nil
	}
	f := snap.records[mode][i]
	return &f, nil
}

// Stats は各データセットの件数を返す。
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	snap, err := s.ensure(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		ArchiveCount: len(snap.records[model.ModeArchive]),
		RecentCount:  len(snap.records[model.ModeRecent]),
	}, nil
}

func (s *Store) ensure(ctx context.Context) (*snapshot, error) {
	for {
		s.mu.Lock()
		switch s.state {
		case StateLoaded:
			snap := s.data
			s.mu.Unlock()
			return snap, nil

		case StateLoading:
			done := s.done
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			s.mu.Lock()
			if s.state == StateLoaded {
				snap := s.data
				s.mu.Unlock()
				return snap, nil
			}
			err := s.err
			s.mu.Unlock()
			if err != nil {
				return nil, err
			}
			// 別の呼び出し元が既に再試行を始めている
			continue

		default:
			s.state = StateLoading
			s.done = make(chan struct{})
			s.mu.Unlock()

			// 最初の呼び出し元のキャンセルで待機中の全員が失敗しないようにする
			snap, err := s.load(context.WithoutCancel(ctx))

			s.mu.Lock()
			if err != nil {
				s.state = StateUnloaded
				s.err = err
			} else {
				s.state = StateLoaded
				s.err = nil
				s.data = snap
			}
			close(s.done)
			s.done = nil
			s.mu.Unlock()
			return snap, err
		}
	}
}

func (s *Store) load(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{
		records: make(map[model.Mode][]model.Fundraise, len(s.sources)),
		index:   make(map[model.Mode]map[string]int, len(s.sources)),
	}

	for _, mode := range []model.Mode{model.ModeArchive, model.ModeRecent} {
		src := s.sources[mode]
		start := time.Now()

		raw, err := src.Fetch(ctx)
		if err != nil {
			s.metrics.RecordDatasetLoadFailure(string(mode))
			s.logger.Error("データセットのロードに失敗しました",
				slog.String("mode", string(mode)),
				slog.String("source", src.Name()),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to load %s dataset: %w", mode, err)
		}

		records := s.loader.Load(raw)
		index := make(map[string]int, len(records))
		for i, f := range records {
			index[f.ID] = i
		}
		snap.records[mode] = records
		snap.index[mode] = index

		elapsed := time.Since(start)
		s.metrics.RecordDatasetLoaded(string(mode), len(records), elapsed)
		s.logger.Info("データセットをロードしました",
			slog.String("mode", string(mode)),
			slog.String("source", src.Name()),
			slog.Int("records", len(records)),
			slog.Float64("duration_ms", float64(elapsed.Milliseconds())),
		)
	}

	return snap, nil
}
