// Package generr описывает таксономию ошибок генератора.
//
// Каждая ошибка имеет вид (Kind). Виды доступны как sentinel-ошибки,
// поэтому проверка выглядит так:
//
//	if errors.Is(err, generr.ErrDependency) { ... }
package generr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind вид ошибки
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindValidation
	KindDependency
	KindMaskEvaluation
	KindGeneration
	KindWriter
	KindPublish
)

// String возвращает имя вида ошибки
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindValidation:
		return "ValidationError"
	case KindDependency:
		return "DependencyError"
	case KindMaskEvaluation:
		return "MaskEvaluationError"
	case KindGeneration:
		return "GenerationError"
	case KindWriter:
		return "WriterError"
	case KindPublish:
		return "PublishError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel-ошибки для errors.Is
var (
	ErrConfiguration  = &kindError{KindConfiguration}
	ErrValidation     = &kindError{KindValidation}
	ErrDependency     = &kindError{KindDependency}
	ErrMaskEvaluation = &kindError{KindMaskEvaluation}
	ErrGeneration     = &kindError{KindGeneration}
	ErrWriter         = &kindError{KindWriter}
	ErrPublish        = &kindError{KindPublish}
)

type kindError struct{ kind Kind }

func (k *kindError) Error() string { return k.kind.String() }

// FieldError описывает один некорректный параметр
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// Error ошибка генератора с привязкой к шагу и колонке
type Error struct {
	Kind      Kind
	Step      int    // индекс шага, -1 если не применимо
	Column    string // колонка, к которой относится ошибка
	Fields    []FieldError
	Msg       string
	Transient bool // только для KindPublish: временный сбой, можно повторить
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Step >= 0 {
		fmt.Fprintf(&b, " (step %d", e.Step)
		if e.Column != "" {
			fmt.Fprintf(&b, ", column %q", e.Column)
		}
		b.WriteString(")")
	} else if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.String()
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает вид ошибки с sentinel-ошибкой
func (e *Error) Is(target error) bool {
	var k *kindError
	if errors.As(target, &k) {
		return k.kind == e.Kind
	}
	return false
}

// WithStep возвращает копию ошибки с привязкой к шагу и колонке.
// Уже заданные значения не перезаписываются.
func (e *Error) WithStep(step int, column string) *Error {
	c := *e
	if c.Step < 0 {
		c.Step = step
	}
	if c.Column == "" {
		c.Column = column
	}
	return &c
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Step: -1, Msg: fmt.Sprintf(format, args...)}
}

// Configuration создает ConfigurationError
func Configuration(format string, args ...any) *Error {
	return newError(KindConfiguration, format, args...)
}

// Validation создает ValidationError со списком всех некорректных полей
func Validation(fields []FieldError) *Error {
	e := newError(KindValidation, "invalid parameters")
	e.Fields = fields
	return e
}

// Dependency создает DependencyError для отсутствующей колонки
func Dependency(column string, format string, args ...any) *Error {
	e := newError(KindDependency, format, args...)
	e.Column = column
	return e
}

// MaskEvaluation создает MaskEvaluationError
func MaskEvaluation(format string, args ...any) *Error {
	return newError(KindMaskEvaluation, format, args...)
}

// Generation создает GenerationError
func Generation(format string, args ...any) *Error {
	return newError(KindGeneration, format, args...)
}

// Writer оборачивает ошибку записи
func Writer(writerType string, err error) *Error {
	e := newError(KindWriter, "%s writer failed", writerType)
	e.Err = err
	return e
}

// Publish оборачивает ошибку публикации. transient=true разрешает повтор.
func Publish(sink string, transient bool, err error) *Error {
	e := newError(KindPublish, "publish to %s failed", sink)
	e.Transient = transient
	e.Err = err
	return e
}

// IsTransient сообщает, можно ли повторить операцию
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindPublish && e.Transient
	}
	return false
}

// KindOf возвращает вид ошибки или 0, если это не ошибка генератора
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
