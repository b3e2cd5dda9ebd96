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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string, reason string)
	RecordHTTPStatus(statusCode int)
	RecordLikedPostsLatency(duration time.Duration)
	RecordPostCreated()
	RecordImageUploaded(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess      *prometheus.CounterVec
	loginFail         *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	likedPostsLatency prometheus.Histogram
	postsCreated      prometheus.Counter
	imagesUploaded    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeyboard_login_success_total",
			Help: "ソーシャルログイン成功の合計数",
		}, []string{"provider"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeyboard_login_fail_total",
			Help: "ソーシャルログイン失敗の合計数",
		}, []string{"provider", "reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeyboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		likedPostsLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "honeyboard_liked_posts_latency_seconds",
			Help:    "いいね一覧集計のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honeyboard_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		imagesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honeyboard_images_uploaded_total",
			Help: "アップロードされた画像の合計数",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.httpStatus,
		c.likedPostsLatency,
		c.postsCreated,
		c.imagesUploaded,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(provider string) {
	c.loginSuccess.WithLabelValues(provider).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
// reasonにはトークン等の秘匿値を含めない。
func (c *Collector) RecordLoginFailure(provider string, reason string) {
	c.loginFail.WithLabelValues(provider, reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLikedPostsLatency はいいね一覧集計のレイテンシを記録する。
func (c *Collector) RecordLikedPostsLatency(duration time.Duration) {
	c.likedPostsLatency.Observe(duration.Seconds())
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordImageUploaded はアップロードされた画像数を記録する。
func (c *Collector) RecordImageUploaded(count int) {
	c.imagesUploaded.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
