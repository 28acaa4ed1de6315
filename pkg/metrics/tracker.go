package metrics

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// 计算路径标识（与引擎的 ComputationPath 取值一致）
const (
	PathBatch  = "batch"
	PathScalar = "scalar"
)

// speedupWindow 滚动保留的加速比样本数
const speedupWindow = 1024

// Record 单次引擎调用的执行记录
type Record struct {
	Path          string
	Contracts     int
	Elapsed       time.Duration
	ScalarElapsed time.Duration // 对比运行时标量路径耗时
	FellBack      bool
	Clamped       int
}

// Summary 聚合统计快照
type Summary struct {
	BatchCalls     int64
	ScalarCalls    int64
	Fallbacks      int64
	TotalContracts int64
	MeanElapsed    time.Duration
	MeanSpeedup    float64
	LastSpeedup    float64
}

// Tracker 进程级性能聚合器
// 显式构造并注入引擎而非环境全局，测试可为每个用例替换新实例；
// 仅保留聚合统计，不保留单次请求身份；生命周期随进程，仅显式 Reset 清零
type Tracker struct {
	mu             sync.Mutex
	batchCalls     int64
	scalarCalls    int64
	fallbacks      int64
	totalContracts int64
	elapsedSum     time.Duration
	speedups       []float64
	lastSpeedup    float64

	prom *Metrics // 可选，nil 时只做本地聚合
}

// NewTracker 构造函数，prom 传 nil 表示不导出 Prometheus 指标
func NewTracker(prom *Metrics) *Tracker {
	return &Tracker{prom: prom}
}

// Observe 累计一条执行记录
// 多个并发请求可同时上报，内部加锁保证原子性
func (t *Tracker) Observe(rec Record) {
	var speedup float64
	if rec.ScalarElapsed > 0 && rec.Elapsed > 0 {
		speedup = float64(rec.ScalarElapsed) / float64(rec.Elapsed)
	}

	t.mu.Lock()
	switch rec.Path {
	case PathBatch:
		t.batchCalls++
	default:
		t.scalarCalls++
	}
	if rec.FellBack {
		t.fallbacks++
	}
	t.totalContracts += int64(rec.Contracts)
	t.elapsedSum += rec.Elapsed
	if speedup > 0 {
		t.lastSpeedup = speedup
		t.speedups = append(t.speedups, speedup)
		if len(t.speedups) > speedupWindow {
			t.speedups = t.speedups[len(t.speedups)-speedupWindow:]
		}
	}
	t.mu.Unlock()

	if t.prom != nil {
		if rec.Path == PathBatch {
			t.prom.BatchInvocationsTotal.Inc()
		} else {
			t.prom.ScalarInvocationsTotal.Inc()
		}
		if rec.FellBack {
			t.prom.FallbacksTotal.Inc()
		}
		if rec.Clamped > 0 {
			t.prom.ClampsTotal.Add(float64(rec.Clamped))
		}
		t.prom.ContractsProcessedTotal.Add(float64(rec.Contracts))
		t.prom.InvocationDuration.Observe(rec.Elapsed.Seconds())
		if speedup > 0 {
			t.prom.SpeedupRatio.Set(speedup)
		}
	}
}

// Snapshot 返回只读聚合统计
func (t *Tracker) Snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		BatchCalls:     t.batchCalls,
		ScalarCalls:    t.scalarCalls,
		Fallbacks:      t.fallbacks,
		TotalContracts: t.totalContracts,
		LastSpeedup:    t.lastSpeedup,
	}
	if calls := t.batchCalls + t.scalarCalls; calls > 0 {
		s.MeanElapsed = t.elapsedSum / time.Duration(calls)
	}
	if len(t.speedups) > 0 {
		if mean, err := stats.Mean(t.speedups); err == nil {
			s.MeanSpeedup = mean
		}
	}
	return s
}

// Reset 清零所有聚合计数（Prometheus 计数器不回退）
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batchCalls = 0
	t.scalarCalls = 0
	t.fallbacks = 0
	t.totalContracts = 0
	t.elapsedSum = 0
	t.speedups = nil
	t.lastSpeedup = 0
}
