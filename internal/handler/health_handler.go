package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/fundswap/internal/dataset"
)

// HealthChecker はDB接続の疎通確認を行う。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// DatasetStatter はロード済みデータセットの件数を返す。
type DatasetStatter interface {
	Stats(ctx context.Context) (dataset.Stats, error)
}

// HealthHandler は/healthエンドポイントのハンドラー。
type HealthHandler struct {
	db       HealthChecker
	datasets DatasetStatter
	timeout  time.Duration
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db HealthChecker, datasets DatasetStatter) *HealthHandler {
	return &HealthHandler{db: db, datasets: datasets, timeout: 3 * time.Second}
}

type datasetStatsResponse struct {
	ArchiveCount int `json:"archiveCount"`
	RecentCount  int `json:"recentCount"`
}

type healthResponse struct {
	Status    string                `json:"status"`
	Timestamp string                `json:"timestamp"`
	Dataset   *datasetStatsResponse `json:"dataset"`
}

// Health はDBとデータセットの状態を返す。どちらかが利用できない場合は503。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Timestamp: formatTime(time.Now())}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("health check: database unavailable", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	stats, err := h.datasets.Stats(ctx)
	if err != nil {
		slog.Warn("health check: dataset unavailable", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp.Dataset = &datasetStatsResponse{
			ArchiveCount: stats.ArchiveCount,
			RecentCount:  stats.RecentCount,
		}
	}

	writeJSON(w, status, resp)
}
