package domain

import (
	"context"
)

// DefaultBatchThreshold 启用批量路径的最小链长
// 低于该值时批量开销超过收益
const DefaultBatchThreshold = 10

// ScalarFallbackPath 逐合约标量求值器
// 与批量路径使用同一套定价策略（长度为 1 的数组），公式完全一致；
// 单个合约失败只影响自身结果，不中断整条链
type ScalarFallbackPath struct {
	validator *BoundsValidator
}

// NewScalarFallbackPath 构造函数
func NewScalarFallbackPath(validator *BoundsValidator) *ScalarFallbackPath {
	return &ScalarFallbackPath{validator: validator}
}

// Evaluate 逐合约计算希腊字母
// 失败的合约返回不可用结果并携带原因码，仅上下文取消会整体中止
func (s *ScalarFallbackPath) Evaluate(ctx context.Context, contracts []ContractSpec, chain ChainContext, strategy PricingStrategy) (results []GreeksResult, clamped int, err error) {
	requested := chain.Requested()
	results = make([]GreeksResult, len(contracts))

	for i, c := range contracts {
		if err := ctx.Err(); err != nil {
			return nil, clamped, err
		}
		var n int
		results[i], n = s.evaluateOne(c, chain, strategy, requested, i)
		clamped += n
	}
	return results, clamped, nil
}

// evaluateOne 单合约求值，所有失败（含 panic）都折叠为不可用结果
func (s *ScalarFallbackPath) evaluateOne(c ContractSpec, chain ChainContext, strategy PricingStrategy, requested []GreekKind, index int) (result GreeksResult, clamped int) {
	defer func() {
		if r := recover(); r != nil {
			result = Unavailable(c.Symbol, chain.PricingModel, PathScalar, requested, ReasonEvaluationFailed)
			clamped = 0
		}
	}()

	in := BuildModelInputs([]ContractSpec{c}, chain)

	if err := s.validator.ValidateInputs(in, index); err != nil {
		return Unavailable(c.Symbol, chain.PricingModel, PathScalar, requested, ReasonInvalidContract), 0
	}

	out, err := strategy.Evaluate(in, requested)
	if err != nil {
		return Unavailable(c.Symbol, chain.PricingModel, PathScalar, requested, ReasonEvaluationFailed), 0
	}

	n, err := s.validator.ValidateOutputs(out, in, index)
	if err != nil {
		return Unavailable(c.Symbol, chain.PricingModel, PathScalar, requested, ReasonOutOfBounds), 0
	}

	return assembleResult(c.Symbol, chain.PricingModel, PathScalar, requested, out, 0), n
}
