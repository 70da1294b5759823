package cli

import (
	"errors"
	"fmt"
)

// Коды выхода.
const (
	ExitSuccess      = 0 // успех
	ExitFailure      = 1 // операция не удалась (фид недоступен, отправка не прошла)
	ExitCommandError = 2 // ошибка вызова (флаги, конфигурация, бэкенд)
)

// ExitError — ошибка команды с кодом выхода.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError создаёт ExitError без вложенной ошибки.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError оборачивает err кодом выхода.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode извлекает код выхода; для прочих ошибок — ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
