package domain

import "math"

// DefaultMaxVolatility 波动率上限缺省值（500% 年化，超出视为脏数据）
const DefaultMaxVolatility = 5.0

// boundsEpsilon 浮点舍入容差
const boundsEpsilon = 1e-12

// BoundsValidator 数组级边界校验器
// 计算前校验输入物理有效性，计算后校验希腊字母的解析有效范围
type BoundsValidator struct {
	// Strict 为 true 时越界直接报错，为 false 时截断到边界值
	Strict bool
	// MaxVolatility 波动率上限，<=0 时使用 DefaultMaxVolatility
	MaxVolatility float64
}

// NewBoundsValidator 构造函数
func NewBoundsValidator(strict bool, maxVolatility float64) *BoundsValidator {
	if maxVolatility <= 0 {
		maxVolatility = DefaultMaxVolatility
	}
	return &BoundsValidator{Strict: strict, MaxVolatility: maxVolatility}
}

// ValidateInputs 计算前校验，base 为数组在整条链中的起始下标
// 返回的 InvalidContractDataError 携带链内全局下标
func (v *BoundsValidator) ValidateInputs(in ModelInputs, base int) error {
	for i := 0; i < in.Len(); i++ {
		switch {
		case !(in.Spot[i] > 0) || math.IsInf(in.Spot[i], 0):
			return &InvalidContractDataError{Field: "underlying_price", Index: base + i, Value: in.Spot[i]}
		case !(in.Strike[i] > 0) || math.IsInf(in.Strike[i], 0):
			return &InvalidContractDataError{Field: "strike_price", Index: base + i, Value: in.Strike[i]}
		case !(in.Volatility[i] > 0):
			return &InvalidContractDataError{Field: "volatility", Index: base + i, Value: in.Volatility[i]}
		case in.Volatility[i] > v.MaxVolatility:
			return &InvalidContractDataError{Field: "volatility", Index: base + i, Value: in.Volatility[i]}
		case in.TimeToExpiry[i] < 0 || math.IsNaN(in.TimeToExpiry[i]):
			return &InvalidContractDataError{Field: "time_to_expiry", Index: base + i, Value: in.TimeToExpiry[i]}
		}
	}
	return nil
}

// greekBounds 单个希腊字母的解析有效范围
func greekBounds(g GreekKind, isCall bool) (lo, hi float64) {
	switch g {
	case GreekDelta:
		if isCall {
			return 0, 1
		}
		return -1, 0
	case GreekGamma, GreekVega, GreekPrice:
		return 0, math.Inf(1)
	default:
		// theta/rho 符号依约定，不设界
		return math.Inf(-1), math.Inf(1)
	}
}

// ValidateOutputs 计算后校验
// 严格模式下首个越界值返回 GreeksOutOfBoundsError（携带链内全局下标）；
// 非严格模式下截断到边界并返回截断次数。NaN/Inf 在两种模式下都视为错误。
func (v *BoundsValidator) ValidateOutputs(out *ModelOutputs, in ModelInputs, base int) (clamped int, err error) {
	for g, values := range out.Values {
		reasons := out.Reasons[g]
		for i, value := range values {
			if reasons[i] != "" {
				continue // 已标记不可用
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return clamped, &GreeksOutOfBoundsError{Greek: g, Index: base + i, Value: value}
			}
			lo, hi := greekBounds(g, in.IsCall[i])
			if value >= lo && value <= hi {
				continue
			}
			// 浮点舍入导致的边界附近毛刺直接吸附，不算违规
			if value > hi && value-hi < boundsEpsilon {
				values[i] = hi
				continue
			}
			if value < lo && lo-value < boundsEpsilon {
				values[i] = lo
				continue
			}
			if v.Strict {
				return clamped, &GreeksOutOfBoundsError{Greek: g, Index: base + i, Value: value}
			}
			if value < lo {
				values[i] = lo
			} else {
				values[i] = hi
			}
			clamped++
		}
	}
	return clamped, nil
}
