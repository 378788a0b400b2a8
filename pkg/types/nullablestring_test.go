package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableStringStates(t *testing.T) {
	var req struct {
		Path NullableString `json:"path"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.False(t, req.Path.Set)
	assert.True(t, req.Path.IsNil())

	require.NoError(t, json.Unmarshal([]byte(`{"path": null}`), &req))
	assert.True(t, req.Path.Set)
	assert.True(t, req.Path.IsNil())
	assert.Nil(t, req.Path.Ptr())

	require.NoError(t, json.Unmarshal([]byte(`{"path": "/Dockstore.cwl"}`), &req))
	assert.True(t, req.Path.Set)
	assert.False(t, req.Path.IsNil())
	assert.Equal(t, "/Dockstore.cwl", *req.Path.Ptr())

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path": "/Dockstore.cwl"}`, string(b))
}

func TestParseEnums(t *testing.T) {
	l, ok := ParseDescriptorLanguage("nextflow")
	assert.True(t, ok)
	assert.Equal(t, DescriptorLanguageNextflow, l)
	_, ok = ParseDescriptorLanguage("galaxy")
	assert.False(t, ok)

	sc, ok := ParseSourceControl("BitBucket.org")
	assert.True(t, ok)
	assert.Equal(t, SourceControlBitbucket, sc)
	assert.Equal(t, FileTypeWDLTestJSON, DescriptorLanguageWDL.TestParameterFileType())
	assert.True(t, FileTypeCWLTestJSON.IsTestParameter())
	assert.False(t, FileTypeCWL.IsTestParameter())
}
