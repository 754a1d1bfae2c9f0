package services

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION"
	KindInternal        Kind = "INTERNAL"
)

// Error - единственный тип ошибки, который видит транспорт.
// Err хранит внутреннюю причину и клиенту не показывается.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает только Kind: errors.Is(err, ErrForbidden)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "not a member of this building"}
)

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf возвращает вид ошибки; чужие ошибки считаются внутренними
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage - текст, который можно отдать клиенту
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
