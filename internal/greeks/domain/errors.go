package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyChain 批量求值器拒绝空链（编排器对空链返回空结果，不会触发）
var ErrEmptyChain = errors.New("option chain is empty")

// InvalidContractDataError 输入数据非法（非正行权价/波动率、负到期时间等）
// 始终同步返回给调用方，绝不静默修正
type InvalidContractDataError struct {
	Field string  // 违规字段
	Index int     // 链内合约下标
	Value float64 // 违规值
}

func (e *InvalidContractDataError) Error() string {
	return fmt.Sprintf("invalid contract data: field=%s index=%d value=%g", e.Field, e.Index, e.Value)
}

// UnsupportedModelError 请求的定价模型未注册
// 在任何计算开始前立即失败
type UnsupportedModelError struct {
	Model string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported pricing model: %q", e.Model)
}

// GreeksOutOfBoundsError 计算结果超出解析有效范围
// 仅作为内部信号，由编排器捕获并触发标量降级
type GreeksOutOfBoundsError struct {
	Greek GreekKind
	Index int // 链内合约下标
	Value float64
}

func (e *GreeksOutOfBoundsError) Error() string {
	return fmt.Sprintf("greek out of bounds: greek=%s index=%d value=%g", e.Greek, e.Index, e.Value)
}

// BatchComputationError 包装批量管线中的意外错误（数值溢出、panic 等）
// 总是触发标量降级
type BatchComputationError struct {
	Cause error
}

func (e *BatchComputationError) Error() string {
	return fmt.Sprintf("batch computation failed: %v", e.Cause)
}

func (e *BatchComputationError) Unwrap() error {
	return e.Cause
}

// IsBatchRecoverable 判断错误是否应当触发整链标量降级
// 输入数据错误也走降级，由标量路径按合约隔离，避免单个坏合约拖垮整条链
func IsBatchRecoverable(err error) bool {
	var oob *GreeksOutOfBoundsError
	var batch *BatchComputationError
	var invalid *InvalidContractDataError
	return errors.As(err, &oob) || errors.As(err, &batch) || errors.As(err, &invalid)
}
