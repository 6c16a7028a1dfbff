// Package metrics 定义 Prometheus 指标：离线训练、发布、Pipeline 节点与 HTTP 接口。
//
// 指标注册到调用方提供的 Registerer，测试可使用独立的 prometheus.NewRegistry()。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/itemcf/model"
)

const namespace = "itemcf"

// Metrics 汇总本服务的全部指标。
type Metrics struct {
	TrainDuration  prometheus.Histogram
	EngineSize     *prometheus.GaugeVec
	PublishedKeys  prometheus.Counter
	NodeDuration   *prometheus.HistogramVec
	NodeErrors     *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	NeighborsFound *prometheus.CounterVec
}

// New 在 reg 上注册全部指标。同一个 reg 只能调用一次。
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TrainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_duration_seconds",
			Help:      "Duration of similarity training in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		EngineSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_size",
			Help:      "Size of the trained engine by dimension",
		}, []string{"dimension"}),
		PublishedKeys: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_keys_total",
			Help:      "Total number of neighbour lists written to the store",
		}),
		NodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_node_duration_seconds",
			Help:      "Duration of pipeline node processing in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"node", "kind"}),
		NodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_node_errors_total",
			Help:      "Total number of pipeline node failures",
		}, []string{"node", "kind"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		NeighborsFound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "neighbor_queries_total",
			Help:      "Total number of similar-item queries by outcome",
		}, []string{"found"}),
	}
}

// ObserveTrain 记录一次训练耗时与训练后的引擎规模。
func (m *Metrics) ObserveTrain(elapsed time.Duration, stats model.Stats) {
	m.TrainDuration.Observe(elapsed.Seconds())
	m.EngineSize.WithLabelValues("users").Set(float64(stats.Users))
	m.EngineSize.WithLabelValues("items").Set(float64(stats.Items))
	m.EngineSize.WithLabelValues("interactions").Set(float64(stats.Interactions))
	m.EngineSize.WithLabelValues("similarity_nnz").Set(float64(stats.SimilarityNNZ))
	m.EngineSize.WithLabelValues("dropped").Set(float64(stats.Dropped))
}

// ObserveNode 实现 pipeline.Observer。
func (m *Metrics) ObserveNode(node, kind string, elapsed time.Duration, err error) {
	m.NodeDuration.WithLabelValues(node, kind).Observe(elapsed.Seconds())
	if err != nil {
		m.NodeErrors.WithLabelValues(node, kind).Inc()
	}
}

// ObserveNeighbors 记录一次相似物品查询。
func (m *Metrics) ObserveNeighbors(found bool) {
	m.NeighborsFound.WithLabelValues(strconv.FormatBool(found)).Inc()
}

// ObserveHTTP 记录一次 HTTP 请求；route 使用路由模板而非原始路径。
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
