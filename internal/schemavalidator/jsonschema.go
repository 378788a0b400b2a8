package schemavalidator

import (
	"github.com/xeipuuv/gojsonschema"
)

// ValidateJsonSchema validates the JSON document doc against schema.
func ValidateJsonSchema(schema string, doc []byte) ValidationErrors {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return ValidationErrors{{ErrStr: "invalid document: " + err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	var ves ValidationErrors
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "(root)" {
			field = ""
		}
		ves = append(ves, ValidationError{Field: field, ErrStr: re.Description()})
	}
	return ves
}
