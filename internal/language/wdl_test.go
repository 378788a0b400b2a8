package language

import (
	"testing"

	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wdlWorkflow = `version 1.0

import "tasks/align.wdl" as align
import 'https://example.org/remote.wdl' as remote

# a comment with an unbalanced { brace
workflow hello {
  input {
    File reads
    File? index
    Array[File]+ refs
    String sample = "x"
  }
  meta {
    author: "Jane Doe"
    email: "jane@example.org"
    description: "Says \"hello\""
  }
  parameter_meta {
    author: "not the author"
  }
  call align.run { input: reads = reads }
}
`

const wdlDraft2 = `task echo {
  String message
  command { echo ${message} }
}

workflow old {
  File input_file
  File derived = "gs://bucket/x"
  String name
  call echo { input: message = name }
}
`

func TestWDLValidate(t *testing.T) {
	p := &WDL{}
	tests := []struct {
		name      string
		entryType types.EntryType
		content   string
		valid     bool
		msg       string
	}{
		{"workflow", types.EntryTypeWorkflow, wdlWorkflow, true, ""},
		{"draft-2", types.EntryTypeWorkflow, wdlDraft2, true, ""},
		{"missing workflow", types.EntryTypeWorkflow, "task t {\n command { ls }\n}\n", false, "missing workflow block"},
		{"tool with task only", types.EntryTypeTool, "task t {\n command { ls }\n}\n", true, ""},
		{"tool without task", types.EntryTypeTool, "version 1.0\n", false, "needs a task or workflow"},
		{"unbalanced", types.EntryTypeWorkflow, "workflow w {\n", false, "unbalanced braces"},
		{"stray brace", types.EntryTypeWorkflow, "workflow w {}\n}\n", false, "unexpected"},
		{"empty", types.EntryTypeWorkflow, "", false, "descriptor is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Validate(ValidationInput{EntryType: tt.entryType, PrimaryPath: "/Dockstore.wdl", Primary: tt.content})
			assert.Equal(t, tt.valid, r.Valid, r.Message)
			if tt.msg != "" {
				assert.Contains(t, r.Message, tt.msg)
			}
		})
	}
}

func TestWDLInvalidTestParameters(t *testing.T) {
	p := &WDL{}
	in := ValidationInput{
		EntryType:      types.EntryTypeWorkflow,
		PrimaryPath:    "/Dockstore.wdl",
		Primary:        wdlWorkflow,
		TestParameters: map[string]string{"/good.json": `{"hello.reads": "a"}`, "/bad.json": `{"hello.reads":`},
	}
	r := p.Validate(in)
	assert.False(t, r.Valid)
	assert.Contains(t, r.Message, "/bad.json")
	assert.NotContains(t, r.Message, "/good.json")

	delete(in.TestParameters, "/bad.json")
	assert.True(t, p.Validate(in).Valid)

	// YAML is only accepted for CWL
	in.TestParameters = map[string]string{"/test.yaml": "a: b"}
	assert.False(t, p.Validate(in).Valid)
}

func TestWDLMetadata(t *testing.T) {
	md := (&WDL{}).ExtractMetadata(wdlWorkflow)
	assert.Equal(t, Metadata{Author: "Jane Doe", Email: "jane@example.org", Description: `Says "hello"`}, md)
	assert.True(t, (&WDL{}).ExtractMetadata(wdlDraft2).IsEmpty())
}

func TestWDLImportPaths(t *testing.T) {
	refs := (&WDL{}).ImportPaths(wdlWorkflow, "/wdl/Dockstore.wdl")
	assert.Equal(t, []string{"/wdl/tasks/align.wdl"}, refs)
}

func TestWDLFileInputs(t *testing.T) {
	inputs, err := (&WDL{}).FileInputs(wdlWorkflow)
	require.NoError(t, err)
	assert.Equal(t, []string{"reads", "index", "refs"}, inputs)

	inputs, err = (&WDL{}).FileInputs(wdlDraft2)
	require.NoError(t, err)
	assert.Equal(t, []string{"input_file"}, inputs)

	_, err = (&WDL{}).FileInputs("task t {}")
	assert.Error(t, err)
}
