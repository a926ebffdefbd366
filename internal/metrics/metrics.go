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
	RecordSignIn()
	RecordSignInFailure(reason string)
	RecordSubmissionAccepted()
	RecordSubmissionRejected(reason string)
	RecordSubmissionFailed()
	RecordHTTPStatus(statusCode int)
	RecordSubmitLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIn        prometheus.Counter
	signInFail    *prometheus.CounterVec
	submitAccept  prometheus.Counter
	submitReject  *prometheus.CounterVec
	submitFail    prometheus.Counter
	httpStatus    *prometheus.CounterVec
	submitLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmatters_signin_total",
			Help: "サインイン成功の合計数",
		}),
		signInFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedmatters_signin_fail_total",
			Help: "サインイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		submitAccept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmatters_submission_accepted_total",
			Help: "受理されたフィードバック送信の合計数",
		}),
		submitReject: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedmatters_submission_rejected_total",
			Help: "バリデーションで拒否された送信の合計数（理由別）",
		}, []string{"reason"}),
		submitFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmatters_submission_failed_total",
			Help: "ディレクトリ書き込みに失敗した送信の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedmatters_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedmatters_submit_latency_seconds",
			Help:    "フィードバック送信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.signIn,
		c.signInFail,
		c.submitAccept,
		c.submitReject,
		c.submitFail,
		c.httpStatus,
		c.submitLatency,
	)

	return c
}

// RecordSignIn はサインイン成功を記録する。
func (c *Collector) RecordSignIn() {
	c.signIn.Inc()
}

// RecordSignInFailure はサインイン失敗を記録する。
func (c *Collector) RecordSignInFailure(reason string) {
	c.signInFail.WithLabelValues(reason).Inc()
}

// RecordSubmissionAccepted は受理された送信を記録する。
func (c *Collector) RecordSubmissionAccepted() {
	c.submitAccept.Inc()
}

// RecordSubmissionRejected はバリデーションで拒否された送信を記録する。
func (c *Collector) RecordSubmissionRejected(reason string) {
	c.submitReject.WithLabelValues(reason).Inc()
}

// RecordSubmissionFailed はディレクトリ書き込み失敗を記録する。
func (c *Collector) RecordSubmissionFailed() {
	c.submitFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSubmitLatency は送信のレイテンシを記録する。
func (c *Collector) RecordSubmitLatency(duration time.Duration) {
	c.submitLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
