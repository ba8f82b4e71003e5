// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordGatewayRequest(api string, success bool)
	RecordGatewayLatency(api string, duration time.Duration)
	RecordFavoriteToggle(action string)
	RecordStoreFailure(operation string)
	RecordSignIn(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	favoriteToggles *prometheus.CounterVec
	storeFailures   *prometheus.CounterVec
	signIns         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_gateway_requests_total",
			Help: "外部APIリクエストの合計数（API別・成否別）",
		}, []string{"api", "result"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "midori_gateway_latency_seconds",
			Help:    "外部APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"api"}),
		favoriteToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_favorite_toggles_total",
			Help: "お気に入りトグルの合計数（追加/削除別）",
		}, []string{"action"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_store_failures_total",
			Help: "ドキュメントストア操作失敗の合計数（操作別）",
		}, []string{"operation"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_sign_ins_total",
			Help: "サインイン試行の合計数（成否別）",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.gatewayRequests,
		c.gatewayLatency,
		c.favoriteToggles,
		c.storeFailures,
		c.signIns,
	)

	return c
}

// RecordGatewayRequest は外部APIリクエストを記録する。
func (c *Collector) RecordGatewayRequest(api string, success bool) {
	c.gatewayRequests.WithLabelValues(api, resultLabel(success)).Inc()
}

// RecordGatewayLatency は外部APIリクエストのレイテンシを記録する。
func (c *Collector) RecordGatewayLatency(api string, duration time.Duration) {
	c.gatewayLatency.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordFavoriteToggle はお気に入りトグルを記録する。actionは"add"または"remove"。
func (c *Collector) RecordFavoriteToggle(action string) {
	c.favoriteToggles.WithLabelValues(action).Inc()
}

// RecordStoreFailure はドキュメントストア操作の失敗を記録する。
func (c *Collector) RecordStoreFailure(operation string) {
	c.storeFailures.WithLabelValues(operation).Inc()
}

// RecordSignIn はサインイン試行を記録する。
func (c *Collector) RecordSignIn(success bool) {
	c.signIns.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターの/metricsパスにそのままマウントされる。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
