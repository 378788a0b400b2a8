package schemavalidator

import "strings"

type ValidationError struct {
	Field  string
	ErrStr string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.ErrStr
	}
	return e.Field + ": " + e.ErrStr
}

type ValidationErrors []ValidationError

func (ves ValidationErrors) Error() string {
	msgs := make([]string, len(ves))
	for i, e := range ves {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
