package workflow

import (
	"errors"
	"fmt"

	"github.com/mautops/property-flow/internal/repository"
	"gorm.io/gorm"
)

// 错误码
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeValidation        = "VALIDATION_ERROR"
	CodeStorage           = "STORAGE_ERROR"
	CodeConflict          = "CONFLICT"
)

// Error 引擎错误
// 通过 errors.Is(err, ErrNotFound) 等按错误码匹配
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按错误码比较
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// 用于 errors.Is 匹配的哨兵错误
var (
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrForbidden         = &Error{Code: CodeForbidden}
	ErrValidation        = &Error{Code: CodeValidation}
	ErrStorage           = &Error{Code: CodeStorage}
	ErrConflict          = &Error{Code: CodeConflict}
)

func notFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidTransition(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...interface{}) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// storageErr 把仓储层错误翻译为引擎错误
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Code: CodeNotFound, Message: op, Err: err}
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return &Error{Code: CodeConflict, Message: op, Err: err}
	}
	return &Error{Code: CodeStorage, Message: op, Err: err}
}

// lookupErr 查询单条记录时,记录不存在返回带上下文的 NotFound
func lookupErr(kind string, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("%s %q not found", kind, id)
	}
	return storageErr("failed to load "+kind, err)
}
