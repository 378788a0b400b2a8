package dberror

import (
	"github.com/mugiliam/hatchdockstore/internal/apperrors"
)

var (
	ErrDatabase            apperrors.Error = apperrors.New("db error")
	ErrAlreadyExists       apperrors.Error = ErrDatabase.New("already exists")
	ErrNotFound            apperrors.Error = ErrDatabase.New("not found")
	ErrInvalidInput        apperrors.Error = ErrDatabase.New("invalid input")
	ErrConstraintViolation apperrors.Error = ErrDatabase.New("constraint violation")
	ErrNoConnection        apperrors.Error = ErrDatabase.New("no database connection")
)
