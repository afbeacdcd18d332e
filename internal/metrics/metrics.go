// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yejiban"

var (
	// HTTP 请求指标
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP 请求总数",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP 请求耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// 合并引擎指标
	mergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "merge_duration_seconds",
		Help:      "双轨合并耗时",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	mergeRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "merge_rows_last",
		Help:      "最近一次合并输出的日统计行数",
	})

	mergeUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merge_unresolved_names_total",
		Help:      "合并时无法识别的姓名累计数",
	})

	// 聚合指标
	rollupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rollup_duration_seconds",
		Help:      "滚动聚合耗时",
		Buckets:   prometheus.DefBuckets,
	})

	// 外部协作方指标
	advisorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advisor_failures_total",
		Help:      "AI 顾问调用失败次数",
	})

	ocrFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_failures_total",
		Help:      "OCR 调用失败次数",
	})
)

// Handler 返回 /metrics 端点处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequestMetrics 记录HTTP请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMerge 记录合并指标
func RecordMerge(rows int, duration time.Duration) {
	mergeDuration.Observe(duration.Seconds())
	mergeRows.Set(float64(rows))
}

// RecordUnresolvedName 记录无法识别的姓名
func RecordUnresolvedName() {
	mergeUnresolved.Inc()
}

// RecordRollup 记录聚合耗时
func RecordRollup(duration time.Duration) {
	rollupDuration.Observe(duration.Seconds())
}

// RecordAdvisorFailure 记录AI顾问调用失败
func RecordAdvisorFailure() {
	advisorFailures.Inc()
}

// RecordOCRFailure 记录OCR调用失败
func RecordOCRFailure() {
	ocrFailures.Inc()
}
