package types

import (
	"strings"
)

type EntryType string

const (
	EntryTypeTool     EntryType = "tool"
	EntryTypeWorkflow EntryType = "workflow"
)

func (t EntryType) IsValid() bool {
	return t == EntryTypeTool || t == EntryTypeWorkflow
}

// DescriptorLanguage is the closed set of descriptor languages an entry can be written in.
type DescriptorLanguage string

const (
	DescriptorLanguageCWL      DescriptorLanguage = "CWL"
	DescriptorLanguageWDL      DescriptorLanguage = "WDL"
	DescriptorLanguageNextflow DescriptorLanguage = "NFL"
)

var descriptorLanguages = []DescriptorLanguage{
	DescriptorLanguageCWL,
	DescriptorLanguageWDL,
	DescriptorLanguageNextflow,
}

// ParseDescriptorLanguage accepts the canonical names and the common lower case aliases.
func ParseDescriptorLanguage(s string) (DescriptorLanguage, bool) {
	switch strings.ToLower(s) {
	case "cwl":
		return DescriptorLanguageCWL, true
	case "wdl":
		return DescriptorLanguageWDL, true
	case "nfl", "nextflow":
		return DescriptorLanguageNextflow, true
	}
	return "", false
}

func DescriptorLanguages() []DescriptorLanguage {
	return descriptorLanguages
}

// PrimaryFileType returns the source file type of the language's primary descriptor.
func (l DescriptorLanguage) PrimaryFileType() FileType {
	switch l {
	case DescriptorLanguageCWL:
		return FileTypeCWL
	case DescriptorLanguageWDL:
		return FileTypeWDL
	case DescriptorLanguageNextflow:
		return FileTypeNextflowConfig
	}
	return ""
}

// TestParameterFileType returns the source file type of the language's test parameter files.
func (l DescriptorLanguage) TestParameterFileType() FileType {
	switch l {
	case DescriptorLanguageCWL:
		return FileTypeCWLTestJSON
	case DescriptorLanguageWDL:
		return FileTypeWDLTestJSON
	case DescriptorLanguageNextflow:
		return FileTypeNextflowTestParams
	}
	return ""
}

type ReferenceType string

const (
	ReferenceTypeBranch ReferenceType = "BRANCH"
	ReferenceTypeTag    ReferenceType = "TAG"
	// Hosted versions are not tied to a git reference.
	ReferenceTypeNone ReferenceType = "NONE"
)

type SourceControl string

const (
	SourceControlGitHub    SourceControl = "github.com"
	SourceControlBitbucket SourceControl = "bitbucket.org"
	SourceControlGitLab    SourceControl = "gitlab.com"
	SourceControlDockstore SourceControl = "dockstore.org"
)

func ParseSourceControl(s string) (SourceControl, bool) {
	switch SourceControl(strings.ToLower(s)) {
	case SourceControlGitHub:
		return SourceControlGitHub, true
	case SourceControlBitbucket:
		return SourceControlBitbucket, true
	case SourceControlGitLab:
		return SourceControlGitLab, true
	case SourceControlDockstore:
		return SourceControlDockstore, true
	}
	return "", false
}

type FileType string

const (
	FileTypeCWL                FileType = "DOCKSTORE_CWL"
	FileTypeWDL                FileType = "DOCKSTORE_WDL"
	FileTypeNextflowConfig     FileType = "NEXTFLOW_CONFIG"
	FileTypeNextflow           FileType = "NEXTFLOW"
	FileTypeCWLTestJSON        FileType = "CWL_TEST_JSON"
	FileTypeWDLTestJSON        FileType = "WDL_TEST_JSON"
	FileTypeNextflowTestParams FileType = "NEXTFLOW_TEST_PARAMS"
	FileTypeDockerfile         FileType = "DOCKERFILE"
	FileTypeDockstoreYml       FileType = "DOCKSTORE_YML"
	FileTypeReadme             FileType = "README"
)

// IsTestParameter reports whether files of this type are test parameter files.
func (f FileType) IsTestParameter() bool {
	return f == FileTypeCWLTestJSON || f == FileTypeWDLTestJSON || f == FileTypeNextflowTestParams
}

type WorkflowMode string

const (
	WorkflowModeFull         WorkflowMode = "FULL"
	WorkflowModeStub         WorkflowMode = "STUB"
	WorkflowModeHosted       WorkflowMode = "HOSTED"
	WorkflowModeDockstoreYml WorkflowMode = "DOCKSTORE_YML"
)

// OpenStatus is the verdict of the external check-url service.
type OpenStatus string

const (
	OpenStatusAllOpen    OpenStatus = "ALL_OPEN"
	OpenStatusNotAllOpen OpenStatus = "NOT_ALL_OPEN"
	OpenStatusUnknown    OpenStatus = "UNKNOWN"
)

type EventType string

const (
	EventTypePublish       EventType = "PUBLISH_ENTRY"
	EventTypeUnpublish     EventType = "UNPUBLISH_ENTRY"
	EventTypeAddVersion    EventType = "ADD_VERSION_TO_ENTRY"
	EventTypeAddChecker    EventType = "ADD_CHECKER"
	EventTypeRefresh       EventType = "REFRESH_ENTRY"
	EventTypeRegister      EventType = "REGISTER_ENTRY"
	EventTypeDeleteEntry   EventType = "DELETE_ENTRY"
	EventTypeDefaultChange EventType = "DEFAULT_VERSION_CHANGE"
)

type Nullable interface {
	IsNil() bool
}
