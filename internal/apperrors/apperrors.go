// Package apperrors provides chained application errors. Every derived error
// keeps a link to the error it was derived from so that errors.Is matches the
// whole ancestry, and carries an HTTP status code for the API layer.
package apperrors

import (
	"strings"
)

type Error interface {
	error
	// New derives a new sentinel error with the given message.
	New(msg string) Error
	// Msg derives an error that replaces the message but keeps the ancestry.
	Msg(msg string) Error
	// Err attaches underlying causes to a copy of the error.
	Err(err ...error) Error
	// MsgErr is Msg followed by Err.
	MsgErr(msg string, err ...error) Error
	SetStatusCode(code int) Error
	SetExpandError(expand bool) Error
	StatusCode() int
	// ErrorAll returns the message and, if expansion is enabled, the messages of all causes.
	ErrorAll() string
	Unwrap() []error
}

type appError struct {
	msg        string
	parent     *appError
	causes     []error
	statusCode int
	expand     bool
}

var _ Error = (*appError)(nil)

func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		parent:     e,
		statusCode: e.statusCode,
		expand:     e.expand,
	}
}

func (e *appError) Msg(msg string) Error {
	return e.New(msg)
}

func (e *appError) Err(err ...error) Error {
	causes := make([]error, 0, len(err))
	for _, c := range err {
		if c != nil {
			causes = append(causes, c)
		}
	}
	return &appError{
		msg:        e.msg,
		parent:     e,
		causes:     causes,
		statusCode: e.statusCode,
		expand:     e.expand,
	}
}

func (e *appError) MsgErr(msg string, err ...error) Error {
	return e.Msg(msg).Err(err...)
}

func (e *appError) SetStatusCode(code int) Error {
	e.statusCode = code
	return e
}

func (e *appError) SetExpandError(expand bool) Error {
	e.expand = expand
	return e
}

func (e *appError) StatusCode() int {
	return e.statusCode
}

func (e *appError) ErrorAll() string {
	if !e.expand || len(e.causes) == 0 {
		return e.msg
	}
	var sb strings.Builder
	sb.WriteString(e.msg)
	for _, c := range e.causes {
		sb.WriteString(": ")
		if ae, ok := c.(Error); ok {
			sb.WriteString(ae.ErrorAll())
		} else {
			sb.WriteString(c.Error())
		}
	}
	return sb.String()
}

func (e *appError) Unwrap() []error {
	errs := make([]error, 0, len(e.causes)+1)
	if e.parent != nil {
		errs = append(errs, e.parent)
	}
	return append(errs, e.causes...)
}
