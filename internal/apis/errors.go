package apis

import (
	"errors"
	"net/http"

	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
)

// ToHttpxError converts an application error into an HTTP error carrying its
// status code. Application errors without a status code are internal errors.
func ToHttpxError(err error) error {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		return &httpx.Error{
			StatusCode:  statusCode,
			Description: appErr.ErrorAll(),
		}
	}
	return err
}
