package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindForbidden
	KindBadRequest
	KindConflict
	KindTooManyRequests
)

// Error -> pelanggaran aturan bisnis dengan pesan yang layak tampil ke user.
// Ini expected dan sering terjadi, jangan pernah dicatat sebagai server error.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func BadRequestf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func TooManyf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindTooManyRequests, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus memetakan error service ke status HTTP; selain taxonomy di atas
// dianggap kegagalan infrastruktur (500).
func HTTPStatus(err error) int {
	var se *Error
	if errors.As(err, &se) {
		switch se.Kind {
		case KindNotFound:
			return http.StatusNotFound
		case KindForbidden:
			return http.StatusForbidden
		case KindBadRequest:
			return http.StatusBadRequest
		case KindConflict:
			return http.StatusConflict
		case KindTooManyRequests:
			return http.StatusTooManyRequests
		}
	}
	return http.StatusInternalServerError
}
