package domain

import (
	"sort"
	"sync"
)

// ModelInputs 按合约对齐的数组输入，各切片长度一致
// 标量路径传入长度为 1 的切片，保证两条路径使用完全相同的公式
type ModelInputs struct {
	Spot         []float64
	Strike       []float64
	TimeToExpiry []float64
	Rate         []float64
	Yield        []float64
	Volatility   []float64
	IsCall       []bool
}

// Len 输入合约数
func (in ModelInputs) Len() int {
	return len(in.Strike)
}

// ModelOutputs 模型输出，每个请求的希腊字母一个等长数组
// Reasons 中非空字符串表示对应位置的值不可用（如 T=0 时 theta 无定义）
type ModelOutputs struct {
	Values  map[GreekKind][]float64
	Reasons map[GreekKind][]string
}

// NewModelOutputs 为请求的希腊字母预分配输出数组
func NewModelOutputs(requested []GreekKind, n int) *ModelOutputs {
	out := &ModelOutputs{
		Values:  make(map[GreekKind][]float64, len(requested)),
		Reasons: make(map[GreekKind][]string, len(requested)),
	}
	for _, g := range requested {
		out.Values[g] = make([]float64, n)
		out.Reasons[g] = make([]string, n)
	}
	return out
}

// PricingStrategy 可插拔定价模型策略
// 实现必须是纯函数：无副作用、无共享可变状态，可被多请求并发调用
type PricingStrategy interface {
	// Name 模型标识
	Name() string
	// Evaluate 对整个输入数组求值，输出与输入等长且顺序一致
	Evaluate(in ModelInputs, requested []GreekKind) (*ModelOutputs, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]PricingStrategy{}
)

func init() {
	RegisterStrategy(&blackScholesMerton{})
	RegisterStrategy(&black76{})
}

// RegisterStrategy 注册定价策略，同名覆盖
// 模型集合在启动期构成闭集，运行期不做 duck-typing
func RegisterStrategy(s PricingStrategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name()] = s
}

// LookupStrategy 按名称查找策略，未注册返回 UnsupportedModelError
func LookupStrategy(name string) (PricingStrategy, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, &UnsupportedModelError{Model: name}
	}
	return s, nil
}

// SupportedModels 返回已注册的模型名称，按字典序
func SupportedModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
