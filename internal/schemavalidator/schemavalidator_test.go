package schemavalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Organization string `json:"organization" validate:"required,nameFormatValidator"`
	Path         string `json:"descriptor_path" validate:"required,descriptorPathValidator"`
	Language     string `json:"language" validate:"required,languageValidator"`
	Type         string `json:"entry_type" validate:"required,entryTypeValidator"`
	Source       string `json:"source_control" validate:"required,sourceControlValidator"`
}

func TestValidateStruct(t *testing.T) {
	ok := testRequest{
		Organization: "DockstoreTestUser2",
		Path:         "/Dockstore.cwl",
		Language:     "CWL",
		Type:         "workflow",
		Source:       "bitbucket.org",
	}
	assert.Nil(t, ValidateStruct(&ok))

	bad := testRequest{Organization: "bad org", Path: "Dockstore.cwl", Language: "java", Type: "service", Source: "svn"}
	ves := ValidateStruct(&bad)
	require.Len(t, ves, 5)
	assert.Equal(t, "organization", ves[0].Field)
	assert.Contains(t, ves[0].ErrStr, "invalid name format")
	assert.Equal(t, "descriptor_path", ves[1].Field)
	assert.Contains(t, ves.Error(), `unsupported descriptor language "java"`)

	ves = ValidateStruct(&testRequest{})
	require.Len(t, ves, 5)
	assert.Equal(t, "missing required attribute", ves[0].ErrStr)
}

func TestValidDescriptorPath(t *testing.T) {
	for p, want := range map[string]bool{
		"/Dockstore.cwl":       true,
		"/dir/main.wdl":        true,
		"Dockstore.cwl":        false,
		"/dir/":                false,
		"/../etc/passwd":       false,
		"/a//b.cwl":            false,
		"/with space.cwl":      false,
		"/nextflow.config":     true,
		"/a/./nextflow.config": false,
	} {
		assert.Equal(t, want, ValidDescriptorPath(p), p)
	}
}

func TestValidateJsonSchema(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["version"],
		"properties": {"version": {"type": "string", "enum": ["1.2"]}}
	}`
	assert.Nil(t, ValidateJsonSchema(schema, []byte(`{"version": "1.2"}`)))

	ves := ValidateJsonSchema(schema, []byte(`{"version": "2"}`))
	require.Len(t, ves, 1)
	assert.Equal(t, "version", ves[0].Field)

	ves = ValidateJsonSchema(schema, []byte(`{}`))
	require.Len(t, ves, 1)
	assert.Equal(t, "", ves[0].Field)

	assert.NotEmpty(t, ValidateJsonSchema(schema, []byte(`{not json`)))
}
