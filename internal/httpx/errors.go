package httpx

import (
	"encoding/json"
	"net/http"
)

type Error struct {
	StatusCode  int    `json:"-"`
	Description string `json:"error"`
}

func (e *Error) Error() string {
	return e.Description
}

func (e *Error) Send(w http.ResponseWriter) {
	b, _ := json.Marshal(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_, _ = w.Write(b)
}

func newError(status int, def string, msg ...string) *Error {
	d := def
	if len(msg) > 0 && msg[0] != "" {
		d = msg[0]
	}
	return &Error{StatusCode: status, Description: d}
}

func ErrInvalidRequest(msg ...string) *Error {
	return newError(http.StatusBadRequest, "invalid request", msg...)
}

func ErrUnableToReadRequest() *Error {
	return newError(http.StatusBadRequest, "unable to read request")
}

func ErrNotFound(msg ...string) *Error {
	return newError(http.StatusNotFound, "not found", msg...)
}

func ErrApplicationError(msg ...string) *Error {
	return newError(http.StatusInternalServerError, "unable to process request", msg...)
}
