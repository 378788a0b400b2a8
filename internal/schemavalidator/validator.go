// Package schemavalidator holds the shared request validator and the custom
// tags registered on it, plus JSON Schema validation of documents.
package schemavalidator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

// V returns the process wide validator with every custom tag registered.
func V() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonTagName)
		v.RegisterValidation("nameFormatValidator", nameFormatValidator)
		v.RegisterValidation("noSpacesValidator", noSpacesValidator)
		v.RegisterValidation("descriptorPathValidator", descriptorPathValidator)
		v.RegisterValidation("sourceControlValidator", sourceControlValidator)
		v.RegisterValidation("languageValidator", languageValidator)
		v.RegisterValidation("entryTypeValidator", entryTypeValidator)
	})
	return v
}

// jsonTagName reports fields by their JSON name so error paths match the request body.
func jsonTagName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// ValidateStruct validates s and converts failures to ValidationErrors.
func ValidateStruct(s any) ValidationErrors {
	err := V().Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "", ErrStr: err.Error()}}
	}
	var ves ValidationErrors
	for _, e := range ve {
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		var msg string
		switch e.Tag() {
		case "required":
			msg = "missing required attribute"
		case "nameFormatValidator":
			msg = "invalid name format " + InQuotes(e.Value())
		case "noSpacesValidator":
			msg = "must not contain spaces"
		case "descriptorPathValidator":
			msg = "invalid descriptor path " + InQuotes(e.Value())
		case "sourceControlValidator":
			msg = "unsupported source control " + InQuotes(e.Value())
		case "languageValidator":
			msg = "unsupported descriptor language " + InQuotes(e.Value())
		case "entryTypeValidator":
			msg = "invalid entry type " + InQuotes(e.Value())
		case "oneof":
			msg = "must be one of " + e.Param()
		default:
			msg = "validation failed for attribute"
		}
		ves = append(ves, ValidationError{Field: field, ErrStr: msg})
	}
	return ves
}
