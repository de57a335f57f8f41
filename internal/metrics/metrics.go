// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、データセットローダー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordSwipe(mode, decision string)
	RecordMatchCreated(mode string)
	RecordFeedServed(mode string, size int)
	RecordDatasetLoaded(mode string, count int, duration time.Duration)
	RecordDatasetLoadFailure(mode string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	swipes         *prometheus.CounterVec
	matchesCreated *prometheus.CounterVec
	feedServed     *prometheus.CounterVec
	feedSize       *prometheus.GaugeVec
	datasetSize    *prometheus.GaugeVec
	datasetLoad    *prometheus.HistogramVec
	datasetFail    *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundswap_swipes_total",
			Help: "記録されたスワイプの合計数",
		}, []string{"mode", "decision"}),
		matchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundswap_matches_created_total",
			Help: "作成されたマッチの合計数",
		}, []string{"mode"}),
		feedServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundswap_feed_served_total",
			Help: "返却したフィードの合計数",
		}, []string{"mode"}),
		feedSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fundswap_feed_size",
			Help: "直近に返却したフィードの件数",
		}, []string{"mode"}),
		datasetSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fundswap_dataset_records",
			Help: "ロード済みデータセットの件数",
		}, []string{"mode"}),
		datasetLoad: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundswap_dataset_load_seconds",
			Help:    "データセットロードの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		datasetFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundswap_dataset_load_fail_total",
			Help: "データセットロード失敗の合計数",
		}, []string{"mode"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundswap_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundswap_http_request_duration_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.swipes,
		c.matchesCreated,
		c.feedServed,
		c.feedSize,
		c.datasetSize,
		c.datasetLoad,
		c.datasetFail,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSwipe はスワイプの記録を数える。
func (c *Collector) RecordSwipe(mode, decision string) {
	c.swipes.WithLabelValues(mode, decision).Inc()
}

// RecordMatchCreated はマッチの作成を数える。
func (c *Collector) RecordMatchCreated(mode string) {
	c.matchesCreated.WithLabelValues(mode).Inc()
}

// RecordFeedServed はフィードの返却を記録する。
func (c *Collector) RecordFeedServed(mode string, size int) {
	c.feedServed.WithLabelValues(mode).Inc()
	c.feedSize.WithLabelValues(mode).Set(float64(size))
}

// RecordDatasetLoaded はデータセットのロード完了を記録する。
func (c *Collector) RecordDatasetLoaded(mode string, count int, duration time.Duration) {
	c.datasetSize.WithLabelValues(mode).Set(float64(count))
	c.datasetLoad.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordDatasetLoadFailure はデータセットのロード失敗を数える。
func (c *Collector) RecordDatasetLoadFailure(mode string) {
	c.datasetFail.WithLabelValues(mode).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
