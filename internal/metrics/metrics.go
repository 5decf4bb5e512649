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
// 上流クライアントとハンドラー層から利用する。
type MetricsCollector interface {
	RecordUpstreamStatus(service string, statusCode int)
	RecordUpstreamLatency(service string, duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordOrderSubmitted()
	RecordOrderFailed()
	RecordCredentialRejected()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamStatus     *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
	loginSuccess       prometheus.Counter
	loginFailure       prometheus.Counter
	ordersSubmitted    prometheus.Counter
	ordersFailed       prometheus.Counter
	credentialRejected prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_upstream_status_total",
			Help: "上流APIのサービス・HTTPステータスコード別のレスポンス数",
		}, []string{"service", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_upstream_latency_seconds",
			Help:    "上流API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_login_failure_total",
			Help: "ログイン失敗の合計数",
		}),
		ordersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_submitted_total",
			Help: "送信に成功した注文の合計数",
		}),
		ordersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_failed_total",
			Help: "送信に失敗した注文の合計数",
		}),
		credentialRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_credential_rejected_total",
			Help: "上流APIにクレデンシャルを拒否された回数（強制ログアウト）",
		}),
	}

	reg.MustRegister(
		c.upstreamStatus,
		c.upstreamLatency,
		c.loginSuccess,
		c.loginFailure,
		c.ordersSubmitted,
		c.ordersFailed,
		c.credentialRejected,
	)

	return c
}

// RecordUpstreamStatus は上流APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(service string, statusCode int) {
	c.upstreamStatus.WithLabelValues(service, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency は上流API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(service string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// RecordOrderSubmitted は注文送信成功を記録する。
func (c *Collector) RecordOrderSubmitted() {
	c.ordersSubmitted.Inc()
}

// RecordOrderFailed は注文送信失敗を記録する。
func (c *Collector) RecordOrderFailed() {
	c.ordersFailed.Inc()
}

// RecordCredentialRejected はクレデンシャル拒否による強制ログアウトを記録する。
func (c *Collector) RecordCredentialRejected() {
	c.credentialRejected.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// Nop は何も記録しないMetricsCollector。テストおよび無効化時に使用する。
type Nop struct{}

// RecordUpstreamStatus は何もしない。
func (Nop) RecordUpstreamStatus(service string, statusCode int) {}

// RecordUpstreamLatency は何もしない。
func (Nop) RecordUpstreamLatency(service string, duration time.Duration) {}

// RecordLoginSuccess は何もしない。
func (Nop) RecordLoginSuccess() {}

// RecordLoginFailure は何もしない。
func (Nop) RecordLoginFailure() {}

// RecordOrderSubmitted は何もしない。
func (Nop) RecordOrderSubmitted() {}

// RecordOrderFailed は何もしない。
func (Nop) RecordOrderFailed() {}

// RecordCredentialRejected は何もしない。
func (Nop) RecordCredentialRejected() {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
