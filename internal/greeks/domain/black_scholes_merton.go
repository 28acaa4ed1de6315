package domain

import (
	"fmt"
	"math"
)

// ModelBlackScholesMerton 含连续股息率的 Black-Scholes-Merton 模型
const ModelBlackScholesMerton = "black_scholes_merton"

// blackScholesMerton 欧式期权 BSM 定价
// 标的为现货价格，q 为连续股息/持有成本收益率
type blackScholesMerton struct{}

func (m *blackScholesMerton) Name() string {
	return ModelBlackScholesMerton
}

// Evaluate 对整个输入数组计算请求的希腊字母
// T=0 时 delta 退化为阶跃函数，gamma/theta/vega/rho 标记为无定义
func (m *blackScholesMerton) Evaluate(in ModelInputs, requested []GreekKind) (*ModelOutputs, error) {
	n := in.Len()
	if len(in.Spot) != n || len(in.TimeToExpiry) != n || len(in.Rate) != n ||
		len(in.Yield) != n || len(in.Volatility) != n || len(in.IsCall) != n {
		return nil, fmt.Errorf("misaligned model inputs: strike=%d spot=%d", n, len(in.Spot))
	}
	out := NewModelOutputs(requested, n)

	for i := 0; i < n; i++ {
		s, k, t := in.Spot[i], in.Strike[i], in.TimeToExpiry[i]
		r, q, v := in.Rate[i], in.Yield[i], in.Volatility[i]

		if t <= 0 {
			m.evaluateExpired(out, i, s, k, in.IsCall[i], requested)
			continue
		}

		sqrtT := math.Sqrt(t)
		d1 := (math.Log(s/k) + (r-q+0.5*v*v)*t) / (v * sqrtT)
		d2 := d1 - v*sqrtT
		discR := math.Exp(-r * t) // 无风险贴现因子
		discQ := math.Exp(-q * t) // 股息贴现因子
		pdfD1 := normPDF(d1)

		for _, g := range requested {
			var value float64
			switch g {
			case GreekDelta:
				if in.IsCall[i] {
					value = discQ * normCDF(d1)
				} else {
					value = discQ * (normCDF(d1) - 1)
				}
			case GreekGamma:
				value = discQ * pdfD1 / (s * v * sqrtT)
			case GreekVega:
				value = s * discQ * pdfD1 * sqrtT
			case GreekTheta:
				decay := -(s * discQ * pdfD1 * v) / (2 * sqrtT)
				if in.IsCall[i] {
					value = decay - r*k*discR*normCDF(d2) + q*s*discQ*normCDF(d1)
				} else {
					value = decay + r*k*discR*normCDF(-d2) - q*s*discQ*normCDF(-d1)
				}
			case GreekRho:
				if in.IsCall[i] {
					value = k * t * discR * normCDF(d2)
				} else {
					value = -k * t * discR * normCDF(-d2)
				}
			case GreekPrice:
				if in.IsCall[i] {
					value = s*discQ*normCDF(d1) - k*discR*normCDF(d2)
				} else {
					value = k*discR*normCDF(-d2) - s*discQ*normCDF(-d1)
				}
			default:
				out.Reasons[g][i] = ReasonEvaluationFailed
				continue
			}
			out.Values[g][i] = value
		}
	}
	return out, nil
}

// evaluateExpired 到期合约：价格为内在价值，delta 为阶跃，其余无定义
func (m *blackScholesMerton) evaluateExpired(out *ModelOutputs, i int, s, k float64, isCall bool, requested []GreekKind) {
	for _, g := range requested {
		switch g {
		case GreekPrice:
			if isCall {
				out.Values[g][i] = math.Max(s-k, 0)
			} else {
				out.Values[g][i] = math.Max(k-s, 0)
			}
		case GreekDelta:
			out.Values[g][i] = expiredDelta(s, k, isCall)
		default:
			out.Reasons[g][i] = ReasonUndefinedAtExpiry
		}
	}
}

// expiredDelta 到期时 delta 的阶跃值，平价取中点
func expiredDelta(s, k float64, isCall bool) float64 {
	switch {
	case s > k:
		if isCall {
			return 1
		}
		return 0
	case s < k:
		if isCall {
			return 0
		}
		return -1
	default:
		if isCall {
			return 0.5
		}
		return -0.5
	}
}

// normCDF 标准正态分布累积分布函数
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF 标准正态分布概率密度函数
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
