package domain

import (
	"fmt"
	"math"
)

// ModelBlack76 期货/远期期权的 Black-76 模型
const ModelBlack76 = "black_76"

// black76 以远期价格为标的的欧式期权定价
// 输入的 Spot 解释为远期/期货价格，股息率输入被忽略（已含在远期价格中）
type black76 struct{}

func (m *black76) Name() string {
	return ModelBlack76
}

func (m *black76) Evaluate(in ModelInputs, requested []GreekKind) (*ModelOutputs, error) {
	n := in.Len()
	if len(in.Spot) != n || len(in.TimeToExpiry) != n || len(in.Rate) != n ||
		len(in.Volatility) != n || len(in.IsCall) != n {
		return nil, fmt.Errorf("misaligned model inputs: strike=%d spot=%d", n, len(in.Spot))
	}
	out := NewModelOutputs(requested, n)

	for i := 0; i < n; i++ {
		f, k, t := in.Spot[i], in.Strike[i], in.TimeToExpiry[i]
		r, v := in.Rate[i], in.Volatility[i]

		if t <= 0 {
			m.evaluateExpired(out, i, f, k, in.IsCall[i], requested)
			continue
		}

		sqrtT := math.Sqrt(t)
		d1 := (math.Log(f/k) + 0.5*v*v*t) / (v * sqrtT)
		d2 := d1 - v*sqrtT
		disc := math.Exp(-r * t)
		pdfD1 := normPDF(d1)

		var price float64
		if in.IsCall[i] {
			price = disc * (f*normCDF(d1) - k*normCDF(d2))
		} else {
			price = disc * (k*normCDF(-d2) - f*normCDF(-d1))
		}

		for _, g := range requested {
			var value float64
			switch g {
			case GreekDelta:
				if in.IsCall[i] {
					value = disc * normCDF(d1)
				} else {
					value = disc * (normCDF(d1) - 1)
				}
			case GreekGamma:
				value = disc * pdfD1 / (f * v * sqrtT)
			case GreekVega:
				value = f * disc * pdfD1 * sqrtT
			case GreekTheta:
				value = -(f*disc*pdfD1*v)/(2*sqrtT) + r*price
			case GreekRho:
				// 远期价格固定时，利率只通过贴现因子起作用
				value = -t * price
			case GreekPrice:
				value = price
			default:
				out.Reasons[g][i] = ReasonEvaluationFailed
				continue
			}
			out.Values[g][i] = value
		}
	}
	return out, nil
}

func (m *black76) evaluateExpired(out *ModelOutputs, i int, f, k float64, isCall bool, requested []GreekKind) {
	for _, g := range requested {
		switch g {
		case GreekPrice:
			if isCall {
				out.Values[g][i] = math.Max(f-k, 0)
			} else {
				out.Values[g][i] = math.Max(k-f, 0)
			}
		case GreekDelta:
			out.Values[g][i] = expiredDelta(f, k, isCall)
		default:
			out.Reasons[g][i] = ReasonUndefinedAtExpiry
		}
	}
}
