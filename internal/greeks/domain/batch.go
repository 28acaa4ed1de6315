package domain

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/shopspring/decimal"
)

// 批量路径缺省参数
const (
	DefaultChunkSize = 500 // 单块合约数，限制峰值内存
)

// BatchPricingCore 向量化批量求值器
// 将整条链切分为固定大小的块，对每块以数组形式调用一次定价策略，
// 任一块校验失败则整次调用失败，由编排器执行整链标量降级
type BatchPricingCore struct {
	chunkSize   int
	workerCount int
	validator   *BoundsValidator
}

// NewBatchPricingCore 构造函数，非法参数回退到缺省值
func NewBatchPricingCore(chunkSize, workerCount int, validator *BoundsValidator) *BatchPricingCore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	return &BatchPricingCore{
		chunkSize:   chunkSize,
		workerCount: workerCount,
		validator:   validator,
	}
}

// chunkJob 一个待求值的块
type chunkJob struct {
	base int // 块在整条链中的起始下标
	hi   int
}

// Evaluate 批量计算整条链的希腊字母
// 输出顺序与输入合约顺序一致；返回块数与截断数用于指标记录
// 失败时不返回任何部分结果
func (b *BatchPricingCore) Evaluate(ctx context.Context, contracts []ContractSpec, chain ChainContext, strategy PricingStrategy) (results []GreeksResult, chunkCount, clamped int, err error) {
	n := len(contracts)
	if n == 0 {
		return nil, 0, 0, ErrEmptyChain
	}
	requested := chain.Requested()
	results = make([]GreeksResult, n)
	chunkCount = (n + b.chunkSize - 1) / b.chunkSize

	jobs := make(chan chunkJob, chunkCount)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		firstErr     error
		clampedTotal int
	)

	workers := b.workerCount
	if workers > chunkCount {
		workers = chunkCount
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue // 已失败，排空剩余任务
				}
				chunkClamped, chunkErr := b.evaluateChunk(contracts, chain, strategy, requested, job, results)
				mu.Lock()
				clampedTotal += chunkClamped
				if chunkErr != nil && firstErr == nil {
					firstErr = chunkErr
				}
				mu.Unlock()
			}
		}()
	}

	// 上下文取消后停止派发，已派发的块运行至完成
	for base := 0; base < n; base += b.chunkSize {
		if ctxErr := ctx.Err(); ctxErr != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = ctxErr
			}
			mu.Unlock()
			break
		}
		hi := base + b.chunkSize
		if hi > n {
			hi = n
		}
		jobs <- chunkJob{base: base, hi: hi}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, chunkCount, 0, firstErr
	}
	return results, chunkCount, clampedTotal, nil
}

// evaluateChunk 单块管线：建数组 → 前置校验 → 模型求值 → 后置校验 → 组装
// 数组管线中的 panic 恢复为 BatchComputationError
func (b *BatchPricingCore) evaluateChunk(contracts []ContractSpec, chain ChainContext, strategy PricingStrategy, requested []GreekKind, job chunkJob, results []GreeksResult) (clamped int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BatchComputationError{Cause: fmt.Errorf("panic in array pipeline: %v", r)}
		}
	}()

	in := BuildModelInputs(contracts[job.base:job.hi], chain)

	if preErr := b.validator.ValidateInputs(in, job.base); preErr != nil {
		return 0, preErr
	}

	out, evalErr := strategy.Evaluate(in, requested)
	if evalErr != nil {
		return 0, &BatchComputationError{Cause: evalErr}
	}

	clamped, postErr := b.validator.ValidateOutputs(out, in, job.base)
	if postErr != nil {
		return 0, postErr
	}

	for i := job.base; i < job.hi; i++ {
		results[i] = assembleResult(contracts[i].Symbol, chain.PricingModel, PathBatch, requested, out, i-job.base)
	}
	return clamped, nil
}

// BuildModelInputs 从合约字段与广播的链上下文标量构建对齐数组
func BuildModelInputs(contracts []ContractSpec, chain ChainContext) ModelInputs {
	n := len(contracts)
	in := ModelInputs{
		Spot:         make([]float64, n),
		Strike:       make([]float64, n),
		TimeToExpiry: make([]float64, n),
		Rate:         make([]float64, n),
		Yield:        make([]float64, n),
		Volatility:   make([]float64, n),
		IsCall:       make([]bool, n),
	}
	spot := chain.UnderlyingPrice.InexactFloat64()
	for i, c := range contracts {
		in.Spot[i] = spot
		in.Strike[i] = c.StrikePrice.InexactFloat64()
		in.TimeToExpiry[i] = c.TimeToExpiry
		in.Rate[i] = chain.RiskFreeRate
		in.Yield[i] = chain.DividendYield
		in.Volatility[i] = c.Volatility
		in.IsCall[i] = c.Type == OptionTypeCall
	}
	return in
}

// assembleResult 将模型输出的第 i 个位置组装为合约结果
func assembleResult(symbol, model string, path ComputationPath, requested []GreekKind, out *ModelOutputs, i int) GreeksResult {
	values := make(map[GreekKind]GreekValue, len(requested))
	for _, g := range requested {
		if reason := out.Reasons[g][i]; reason != "" {
			values[g] = GreekValue{Available: false, Reason: reason}
			continue
		}
		values[g] = GreekValue{Value: decimal.NewFromFloat(out.Values[g][i]), Available: true}
	}
	return GreeksResult{Symbol: symbol, Model: model, Path: path, Values: values}
}
