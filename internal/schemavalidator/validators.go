package schemavalidator

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

var (
	nameRe     = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	noSpacesRe = regexp.MustCompile(`^[^\s]+$`)
)

// nameFormatValidator accepts organization, repository and entry names.
func nameFormatValidator(fl validator.FieldLevel) bool {
	return nameRe.MatchString(fl.Field().String())
}

func noSpacesValidator(fl validator.FieldLevel) bool {
	return noSpacesRe.MatchString(fl.Field().String())
}

// descriptorPathValidator accepts absolute paths to a file that do not climb
// out of the repository.
func descriptorPathValidator(fl validator.FieldLevel) bool {
	return ValidDescriptorPath(fl.Field().String())
}

func ValidDescriptorPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") || !noSpacesRe.MatchString(p) {
		return false
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return path.Clean(p) == p
}

func sourceControlValidator(fl validator.FieldLevel) bool {
	_, ok := types.ParseSourceControl(fl.Field().String())
	return ok
}

func languageValidator(fl validator.FieldLevel) bool {
	_, ok := types.ParseDescriptorLanguage(fl.Field().String())
	return ok
}

func entryTypeValidator(fl validator.FieldLevel) bool {
	return types.EntryType(fl.Field().String()).IsValid()
}

// InQuotes renders a rejected value for an error message.
func InQuotes(v any) string {
	return fmt.Sprintf("%q", fmt.Sprint(v))
}
