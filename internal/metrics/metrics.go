// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// リポジトリの計測デコレーターとHTTPミドルウェアから利用する。
type Collector struct {
	queriesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	httpStatus    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userstore_repo_queries_total",
			Help: "リポジトリ操作の実行回数（操作別）",
		}, []string{"operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userstore_repo_errors_total",
			Help: "リポジトリ操作の失敗回数（操作別）",
		}, []string{"operation"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userstore_repo_query_duration_seconds",
			Help:    "リポジトリ操作の所要時間（秒、操作別）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userstore_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.queriesTotal,
		c.errorsTotal,
		c.queryDuration,
		c.httpStatus,
	)

	return c
}

// RecordQuery はリポジトリ操作の実行を記録する。
func (c *Collector) RecordQuery(operation string, duration time.Duration, err error) {
	c.queriesTotal.WithLabelValues(operation).Inc()
	c.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.errorsTotal.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
