package core

import "errors"

// 存储层 sentinel 错误。
var (
	// ErrStoreNotFound 表示 key/成员不存在
	ErrStoreNotFound = errors.New("store: not found")

	// ErrStoreNotSupported 表示后端不支持该操作
	ErrStoreNotSupported = errors.New("store: operation not supported")
)

// IsStoreNotFound 检查错误是否为"不存在"。
func IsStoreNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound)
}

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 降级策略（见 engine 包）依赖这些代码做分类：
//   - UNAVAILABLE：上游存储不可达，单类目降级为空列表
//   - NOT_FOUND：身份/商品不存在，推荐端点按游客处理
//   - INVALID_INPUT：参数非法，按范围收敛而非拒绝
//   - INTERNAL_ERROR：仅当所有来源同时失败时才对外暴露
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "recall", "engine"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
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

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 上游不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore  = "store"  // 存储模块
	ModuleRecall = "recall" // 召回模块
	ModuleEngine = "engine" // 聚合模块
	ModuleServer = "server" // HTTP 模块
)

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if IsStoreNotFound(err) {
		return true
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE。
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}
