// 包 批量希腊字母计算引擎的领域模型
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// GreekKind 希腊字母种类
type GreekKind string

const (
	GreekDelta GreekKind = "delta"
	GreekGamma GreekKind = "gamma"
	GreekTheta GreekKind = "theta"
	GreekVega  GreekKind = "vega"
	GreekRho   GreekKind = "rho"
	// GreekPrice 理论价格，不属于标准希腊字母，仅在显式请求时计算
	GreekPrice GreekKind = "price"
)

// AllGreeks 返回五个标准希腊字母（不含理论价格）
func AllGreeks() []GreekKind {
	return []GreekKind{GreekDelta, GreekGamma, GreekTheta, GreekVega, GreekRho}
}

// ComputationPath 计算路径标识，随结果返回以便审计
type ComputationPath string

const (
	PathBatch  ComputationPath = "batch"  // 向量化批量路径
	PathScalar ComputationPath = "scalar" // 逐合约标量路径
)

// ContractSpec 单个期权合约的定价输入
// 构造后不可变
type ContractSpec struct {
	Symbol       string          // 合约标识
	Type         OptionType      // 期权类型 (CALL/PUT)
	StrikePrice  decimal.Decimal // 行权价
	Volatility   float64         // 隐含/假设波动率 (年化)
	TimeToExpiry float64         // 到期时间 (年)，0 表示已到期
	ExpiryDate   int64           // 到期日 (毫秒时间戳)，用于期限结构分组
}

// ChainContext 整条期权链共享的定价上下文
// 由发起请求的调用方独占，校验后不再修改
type ChainContext struct {
	UnderlyingPrice decimal.Decimal // 标的资产价格 (black_76 下解释为远期价格)
	RiskFreeRate    float64         // 无风险利率
	DividendYield   float64         // 股息/持有成本收益率
	PricingModel    string          // 定价模型标识
	RequestedGreeks []GreekKind     // 请求的希腊字母，为空表示全部五个
}

// Requested 归一化请求的希腊字母集合，去重并保持输入顺序
func (c ChainContext) Requested() []GreekKind {
	if len(c.RequestedGreeks) == 0 {
		return AllGreeks()
	}
	seen := make(map[GreekKind]bool, len(c.RequestedGreeks))
	out := make([]GreekKind, 0, len(c.RequestedGreeks))
	for _, g := range c.RequestedGreeks {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// 不可用原因码
const (
	ReasonUndefinedAtExpiry = "undefined_at_expiry" // T=0 时该希腊字母无定义
	ReasonInvalidContract   = "invalid_contract_data"
	ReasonEvaluationFailed  = "evaluation_failed"
	ReasonOutOfBounds       = "out_of_bounds"
)

// GreekValue 单个希腊字母的计算值
// Available 为 false 时 Value 无意义，Reason 说明不可用原因
type GreekValue struct {
	Value     decimal.Decimal
	Available bool
	Reason    string
}

// GreeksResult 单个合约的希腊字母计算结果
type GreeksResult struct {
	Symbol string
	Model  string
	Path   ComputationPath
	Values map[GreekKind]GreekValue
}

// Unavailable 构造整个合约不可用的结果
func Unavailable(symbol, model string, path ComputationPath, requested []GreekKind, reason string) GreeksResult {
	values := make(map[GreekKind]GreekValue, len(requested))
	for _, g := range requested {
		values[g] = GreekValue{Available: false, Reason: reason}
	}
	return GreeksResult{Symbol: symbol, Model: model, Path: path, Values: values}
}

// BatchMetricsRecord 单次引擎调用的执行元数据
// 每次调用恰好产生一条记录，无论最终走哪条路径
type BatchMetricsRecord struct {
	Path          ComputationPath
	ChunkCount    int
	Contracts     int
	Elapsed       time.Duration
	ScalarElapsed time.Duration // 对比运行时标量路径耗时，否则为 0
	FellBack      bool          // 批量路径失败后降级为标量
}

// Speedup 批量相对标量的加速比，仅对比运行有意义
func (r BatchMetricsRecord) Speedup() float64 {
	if r.ScalarElapsed <= 0 || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.ScalarElapsed) / float64(r.Elapsed)
}

// GroupByExpiry 按到期日对合约分组，用于期限结构计算
// 各组内保持原始顺序
func GroupByExpiry(contracts []ContractSpec) map[int64][]ContractSpec {
	groups := make(map[int64][]ContractSpec)
	for _, c := range contracts {
		groups[c.ExpiryDate] = append(groups[c.ExpiryDate], c)
	}
	return groups
}
