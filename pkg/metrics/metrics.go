// Package metrics 提供引擎的 Prometheus 指标与进程级性能聚合器
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/pkg/logging"
)

// Metrics 引擎指标集合
type Metrics struct {
	// 批量路径调用计数
	BatchInvocationsTotal prometheus.Counter
	// 标量路径调用计数
	ScalarInvocationsTotal prometheus.Counter
	// 批量失败降级计数
	FallbacksTotal prometheus.Counter
	// 已处理合约总数
	ContractsProcessedTotal prometheus.Counter
	// 非严格模式下的边界截断计数
	ClampsTotal prometheus.Counter
	// 单次引擎调用耗时
	InvocationDuration prometheus.Histogram
	// 批量对比运行的加速比
	SpeedupRatio prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		BatchInvocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "batch_invocations_total",
			Help:      "Total invocations completed on the batch path",
		}),
		ScalarInvocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "scalar_invocations_total",
			Help:      "Total invocations completed on the scalar path",
		}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "fallbacks_total",
			Help:      "Total batch failures downgraded to the scalar path",
		}),
		ContractsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "contracts_processed_total",
			Help:      "Total option contracts processed",
		}),
		ClampsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "clamps_total",
			Help:      "Total greek values clamped to their analytic bounds",
		}),
		InvocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "invocation_duration_seconds",
			Help:      "Engine invocation duration in seconds",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
		}),
		SpeedupRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "greeks",
			Subsystem: serviceName,
			Name:      "speedup_ratio",
			Help:      "Last observed batch vs scalar speedup ratio",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.BatchInvocationsTotal,
		m.ScalarInvocationsTotal,
		m.FallbacksTotal,
		m.ContractsProcessedTotal,
		m.ClampsTotal,
		m.InvocationDuration,
		m.SpeedupRatio,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logging.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logging.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logging.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logging.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
