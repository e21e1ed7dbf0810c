// Package core предоставляет систему ошибок рантайма.
package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Коды ошибок рантайма
const (
	ErrValidation          = "VALIDATION_ERROR"
	ErrComponentNotFound   = "COMPONENT_NOT_FOUND"
	ErrCapabilityNotFound  = "CAPABILITY_NOT_FOUND"
	ErrMissingDependency   = "MISSING_DEPENDENCY"
	ErrCyclicDependency    = "CYCLIC_DEPENDENCY"
	ErrCapabilityExecution = "CAPABILITY_EXECUTION_FAILED"
	ErrInitialization      = "INITIALIZATION_FAILED"
	ErrStop                = "STOP_FAILED"
	ErrOperationCancelled  = "OPERATION_CANCELLED"
	ErrInvalidState        = "INVALID_STATE"
	ErrAlreadyExists       = "ALREADY_EXISTS"
)

// RuntimeError базовый тип ошибки рантайма
type RuntimeError struct {
	Code       string
	Message    string
	Cause      error
	StackTrace string
}

// Error реализует интерфейс error
func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Is проверяет, соответствует ли ошибка коду
func (e *RuntimeError) Is(target error) bool {
	if t, ok := target.(*RuntimeError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext добавляет контекст к ошибке
func (e *RuntimeError) WithContext(context string) *RuntimeError {
	return &RuntimeError{
		Code:       e.Code,
		Message:    fmt.Sprintf("%s: %s", context, e.Message),
		Cause:      e.Cause,
		StackTrace: e.StackTrace,
	}
}

// NewError создает новую ошибку рантайма
func NewError(code, message string) *RuntimeError {
	return &RuntimeError{
		Code:       code,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// NewErrorf создает новую ошибку рантайма с форматированием
func NewErrorf(code, format string, args ...interface{}) *RuntimeError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code, message string) *RuntimeError {
	if err == nil {
		return nil
	}
	return &RuntimeError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStackTrace(),
	}
}

// IsCode проверяет, несет ли ошибка (или любая из ее причин) указанный код
func IsCode(err error, code string) bool {
	var re *RuntimeError
	for errors.As(err, &re) {
		if re.Code == code {
			return true
		}
		err = re.Cause
		re = nil
	}
	return false
}

// captureStackTrace захватывает stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// Убираем первые несколько строк (сама функция captureStackTrace)
	lines := strings.Split(stack, "\n")
	if len(lines) > 4 {
		lines = lines[4:]
	}
	return strings.Join(lines, "\n")
}
