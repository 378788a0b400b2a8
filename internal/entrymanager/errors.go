package entrymanager

import (
	"net/http"

	"github.com/mugiliam/hatchdockstore/internal/apperrors"
)

var (
	ErrEntryError           apperrors.Error = apperrors.New("error in processing entry")
	ErrEntryNotFound        apperrors.Error = ErrEntryError.New("entry not found").SetStatusCode(http.StatusNotFound)
	ErrVersionNotFound      apperrors.Error = ErrEntryError.New("version not found").SetStatusCode(http.StatusNotFound)
	ErrAlreadyExists        apperrors.Error = ErrEntryError.New("entry already exists").SetStatusCode(http.StatusConflict)
	ErrInvalidRequest       apperrors.Error = ErrEntryError.New("invalid request").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrHiddenDefaultVersion apperrors.Error = ErrEntryError.New("the default version cannot be hidden").SetStatusCode(http.StatusBadRequest)
	ErrPublishedEntry       apperrors.Error = ErrEntryError.New("published entries cannot be deleted").SetStatusCode(http.StatusBadRequest)
	ErrNoValidVersion       apperrors.Error = ErrEntryError.New("entry has no valid version").SetStatusCode(http.StatusBadRequest)
	ErrConstraintViolation  apperrors.Error = ErrEntryError.New("constraint violation").SetStatusCode(http.StatusConflict)
	ErrInvalidChecker       apperrors.Error = ErrEntryError.New("invalid checker workflow").SetStatusCode(http.StatusBadRequest)
	ErrNotHosted            apperrors.Error = ErrEntryError.New("entry is not hosted").SetStatusCode(http.StatusBadRequest)
	ErrNoChanges            apperrors.Error = ErrEntryError.New("no changes to the hosted files").SetStatusCode(http.StatusBadRequest)
	ErrConcurrentEdit       apperrors.Error = ErrEntryError.New("hosted entry was edited concurrently").SetStatusCode(http.StatusConflict)
	ErrUnableToUpdate       apperrors.Error = ErrEntryError.New("unable to update entry").SetStatusCode(http.StatusInternalServerError)
)
