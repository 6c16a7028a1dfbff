package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - Engine 错误：NOT_PREPARED, NOT_TRAINED, EMPTY_INPUT
//   - Data 错误：MISSING_COLUMN, TYPE_MISMATCH
//   - Store 错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "MISSING_COLUMN", "NOT_TRAINED"）
	Message string // 错误消息
	Module  string // 模块名称（如 "engine", "data", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeMissingColumn = "MISSING_COLUMN" // 输入表缺少必需列
	ErrorCodeEmptyInput    = "EMPTY_INPUT"    // 输入表没有可用行
	ErrorCodeTypeMismatch  = "TYPE_MISMATCH"  // 评分无法转换为数值
	ErrorCodeNotPrepared   = "NOT_PREPARED"   // 未调用 Prepare
	ErrorCodeNotTrained    = "NOT_TRAINED"    // 未调用 Train
)

// 模块名称常量
const (
	ModuleEngine = "engine" // 相似度引擎
	ModuleData   = "data"   // 数据接入边界
	ModuleStore  = "store"  // 存储模块
)

// 引擎与数据边界的错误定义
var (
	// ErrMissingColumn 表示输入表缺少 user_id / item_id / rating / item_label 之一
	ErrMissingColumn = NewDomainError(ModuleData, ErrorCodeMissingColumn, "data: missing required column")

	// ErrTypeMismatch 表示评分值无法转换为数值，整张表被拒绝
	ErrTypeMismatch = NewDomainError(ModuleData, ErrorCodeTypeMismatch, "data: rating is not numeric")

	// ErrEmptyInput 表示输入表为空；非致命，引擎进入合法的空状态
	ErrEmptyInput = NewDomainError(ModuleEngine, ErrorCodeEmptyInput, "engine: empty input")

	// ErrNotPrepared 表示在 Prepare 之前调用了 Train
	ErrNotPrepared = NewDomainError(ModuleEngine, ErrorCodeNotPrepared, "engine: not prepared")

	// ErrNotTrained 表示在 Train 之前发起了查询
	ErrNotTrained = NewDomainError(ModuleEngine, ErrorCodeNotTrained, "engine: not trained")
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsMissingColumn 检查错误是否为 MISSING_COLUMN
func IsMissingColumn(err error) bool { return hasCode(err, ErrorCodeMissingColumn) }

// IsTypeMismatch 检查错误是否为 TYPE_MISMATCH
func IsTypeMismatch(err error) bool { return hasCode(err, ErrorCodeTypeMismatch) }

// IsEmptyInput 检查错误是否为 EMPTY_INPUT
func IsEmptyInput(err error) bool { return hasCode(err, ErrorCodeEmptyInput) }

// IsNotPrepared 检查错误是否为 NOT_PREPARED
func IsNotPrepared(err error) bool { return hasCode(err, ErrorCodeNotPrepared) }

// IsNotTrained 检查错误是否为 NOT_TRAINED
func IsNotTrained(err error) bool { return hasCode(err, ErrorCodeNotTrained) }
