package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Виды ошибок. Проверяются через errors.Is(err, apperr.ErrUpstream).
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrUpstream      = errors.New("upstream error")
	ErrIO            = errors.New("io error")
)

// Error: ошибка с видом, операцией и причиной.
// Reason для ErrUpstream содержит диагностику бэкенда как есть.
type Error struct {
	Kind   error
	Op     string
	Reason string
	Status int // HTTP статус бэкенда, если есть
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status=%d)", e.Status)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil && (e.Reason == "" || e.Reason != e.Err.Error()) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func Configuration(op, reason string) error {
	return &Error{Kind: ErrConfiguration, Op: op, Reason: reason}
}

func Validation(op, reason string) error {
	return &Error{Kind: ErrValidation, Op: op, Reason: reason}
}

func Validationf(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func Upstream(op, reason string, err error) error {
	return &Error{Kind: ErrUpstream, Op: op, Reason: reason, Err: err}
}

// UpstreamStatus: ответ бэкенда с неуспешным HTTP статусом.
func UpstreamStatus(op string, status int, reason string) error {
	return &Error{Kind: ErrUpstream, Op: op, Status: status, Reason: reason}
}

func IO(op string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Err: err}
}

// Reason достаёт причину из цепочки ошибок. Пусто, если *Error в цепочке нет.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// MissingEnv собирает ошибку конфигурации по списку незаданных переменных.
func MissingEnv(op string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return Configuration(op, "missing "+strings.Join(names, ", "))
}

// ExitCode сопоставляет виду ошибки код завершения утилиты.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	case errors.Is(err, ErrValidation):
		return 3
	case errors.Is(err, ErrUpstream):
		return 4
	case errors.Is(err, ErrIO):
		return 5
	default:
		return 1
	}
}
