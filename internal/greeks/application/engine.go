// 包 批量希腊字母引擎的应用层编排
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/greeksengine/internal/greeks/domain"
	"github.com/wyfcoding/greeksengine/pkg/config"
	"github.com/wyfcoding/greeksengine/pkg/metrics"
)

// ComputeOptions 单次调用的可选覆盖项
type ComputeOptions struct {
	// ForceMode 强制路径选择，为空时按链长与阈值自动选择
	ForceMode domain.ComputationPath
	// CompareScalar 批量成功后追加一次标量运行用于加速比统计
	CompareScalar bool
}

// GreeksEngine 批量希腊字母计算引擎的公共入口
// 按链长与配置在批量/标量路径间选择，批量失败时整链降级为标量路径，
// 降级是单向的，同一次调用内不会回到批量路径
type GreeksEngine struct {
	cfg     config.EngineConfig
	batch   *domain.BatchPricingCore
	scalar  *domain.ScalarFallbackPath
	tracker *metrics.Tracker
	logger  *slog.Logger
}

// NewGreeksEngine 构造函数
// tracker 由进程启动期创建并注入，测试可传入全新实例
func NewGreeksEngine(cfg config.EngineConfig, tracker *metrics.Tracker, logger *slog.Logger) *GreeksEngine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = domain.DefaultChunkSize
	}
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = domain.DefaultBatchThreshold
	}
	validator := domain.NewBoundsValidator(cfg.StrictBounds, cfg.MaxVolatility)
	if tracker == nil {
		tracker = metrics.NewTracker(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GreeksEngine{
		cfg:     cfg,
		batch:   domain.NewBatchPricingCore(cfg.ChunkSize, cfg.WorkerCount, validator),
		scalar:  domain.NewScalarFallbackPath(validator),
		tracker: tracker,
		logger:  logger,
	}
}

// ComputeChain 计算整条期权链的希腊字母
// 输出与输入合约等长且顺序一致；无论走哪条路径，每次调用恰好产生一条指标记录。
// 模型未注册时在任何计算开始前返回 UnsupportedModelError，不产生记录。
func (e *GreeksEngine) ComputeChain(ctx context.Context, contracts []domain.ContractSpec, chain domain.ChainContext, opts *ComputeOptions) ([]domain.GreeksResult, domain.BatchMetricsRecord, error) {
	// 先验证模型，快速失败，不做任何部分计算
	strategy, err := domain.LookupStrategy(chain.PricingModel)
	if err != nil {
		return nil, domain.BatchMetricsRecord{}, err
	}

	var o ComputeOptions
	if opts != nil {
		o = *opts
	}

	record := domain.BatchMetricsRecord{Contracts: len(contracts), Path: domain.PathScalar}
	if len(contracts) == 0 {
		e.observe(record, 0)
		return []domain.GreeksResult{}, record, nil
	}

	mode := e.selectMode(len(contracts), o.ForceMode)

	var (
		results []domain.GreeksResult
		clamped int
	)
	start := time.Now()

	if mode == domain.PathBatch {
		batchResults, chunks, batchClamped, batchErr := e.batch.Evaluate(ctx, contracts, chain, strategy)
		switch {
		case batchErr == nil:
			results = batchResults
			clamped = batchClamped
			record.Path = domain.PathBatch
			record.ChunkCount = chunks
		case domain.IsBatchRecoverable(batchErr):
			logging.Warn(ctx, "batch path failed, falling back to scalar",
				"error", batchErr,
				"contracts", len(contracts),
				"model", chain.PricingModel,
			)
			record.FellBack = true
		default:
			// 上下文取消等非降级错误直接上抛，调用方放弃请求时指标照常记录
			record.Path = domain.PathBatch
			record.Elapsed = time.Since(start)
			e.observe(record, 0)
			return nil, record, batchErr
		}
	}

	if results == nil {
		scalarResults, scalarClamped, scalarErr := e.scalar.Evaluate(ctx, contracts, chain, strategy)
		if scalarErr != nil {
			record.Path = domain.PathScalar
			record.Elapsed = time.Since(start)
			e.observe(record, 0)
			return nil, record, scalarErr
		}
		results = scalarResults
		clamped = scalarClamped
		record.Path = domain.PathScalar
	}
	record.Elapsed = time.Since(start)

	// 对比运行：批量成功后再跑一遍标量路径，仅用于加速比统计
	if o.CompareScalar && record.Path == domain.PathBatch {
		scalarStart := time.Now()
		if _, _, cmpErr := e.scalar.Evaluate(ctx, contracts, chain, strategy); cmpErr == nil {
			record.ScalarElapsed = time.Since(scalarStart)
		}
	}

	if clamped > 0 {
		logging.Warn(ctx, "greek values clamped to analytic bounds",
			"count", clamped,
			"contracts", len(contracts),
			"model", chain.PricingModel,
		)
	}
	e.observe(record, clamped)

	e.logger.Debug("option chain computed",
		"path", string(record.Path),
		"contracts", record.Contracts,
		"chunks", record.ChunkCount,
		"fell_back", record.FellBack,
		"elapsed", record.Elapsed,
	)
	return results, record, nil
}

// ComputeTermStructure 按到期日分组计算期限结构
// 各组相互独立：一个到期组的失败不影响其它组，失败组的错误合并后返回
func (e *GreeksEngine) ComputeTermStructure(ctx context.Context, groups map[int64][]domain.ContractSpec, contexts map[int64]domain.ChainContext) (map[int64][]domain.GreeksResult, error) {
	expiries := make([]int64, 0, len(groups))
	for expiry := range groups {
		expiries = append(expiries, expiry)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i] < expiries[j] })

	out := make(map[int64][]domain.GreeksResult, len(groups))
	var errs []error
	for _, expiry := range expiries {
		chain, ok := contexts[expiry]
		if !ok {
			errs = append(errs, fmt.Errorf("missing chain context for expiry %d", expiry))
			logging.Warn(ctx, "missing chain context for expiry group", "expiry", expiry)
			continue
		}
		results, _, err := e.ComputeChain(ctx, groups[expiry], chain, nil)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			errs = append(errs, err)
			logging.Warn(ctx, "expiry group computation failed", "expiry", expiry, "error", err)
			continue
		}
		out[expiry] = results
	}
	return out, errors.Join(errs...)
}

// PerformanceSnapshot 返回进程级聚合统计的只读快照
func (e *GreeksEngine) PerformanceSnapshot() metrics.Summary {
	return e.tracker.Snapshot()
}

// selectMode 路径选择：强制覆盖优先，否则链长达到阈值走批量
func (e *GreeksEngine) selectMode(chainLen int, force domain.ComputationPath) domain.ComputationPath {
	if force == domain.PathBatch || force == domain.PathScalar {
		return force
	}
	if chainLen >= e.cfg.BatchThreshold {
		return domain.PathBatch
	}
	return domain.PathScalar
}

// observe 上报一条执行记录
func (e *GreeksEngine) observe(record domain.BatchMetricsRecord, clamped int) {
	e.tracker.Observe(metrics.Record{
		Path:          string(record.Path),
		Contracts:     record.Contracts,
		Elapsed:       record.Elapsed,
		ScalarElapsed: record.ScalarElapsed,
		FellBack:      record.FellBack,
		Clamped:       clamped,
	})
}
