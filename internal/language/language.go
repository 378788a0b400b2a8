// Package language validates descriptors, extracts their metadata and finds
// their imports and file-typed inputs. There is one Plugin per descriptor language.
package language

import (
	"path"
	"strings"

	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

var ErrUnsupportedLanguage apperrors.Error = apperrors.New("unsupported descriptor language").SetStatusCode(400)

// ValidationInput is everything known about one version's descriptors.
type ValidationInput struct {
	// EntryType is the kind of artifact the descriptor must describe.
	EntryType   types.EntryType
	PrimaryPath string
	Primary     string
	// Imports are the resolved secondary descriptors keyed by absolute path.
	Imports map[string]string
	// MissingImports are referenced paths that do not exist.
	MissingImports []string
	// TestParameters are the test parameter files found, keyed by absolute path.
	TestParameters map[string]string
}

type Result struct {
	Valid   bool
	Message string
}

func valid() Result {
	return Result{Valid: true}
}

func invalid(msg string) Result {
	return Result{Message: msg}
}

type Metadata struct {
	Author      string
	Email       string
	Description string
}

// IsEmpty reports whether the descriptor named no author and no description.
func (m Metadata) IsEmpty() bool {
	return m.Author == "" && m.Email == "" && m.Description == ""
}

type Plugin interface {
	Language() types.DescriptorLanguage
	// Validate checks the primary descriptor, its imports and its test parameter files.
	Validate(in ValidationInput) Result
	ExtractMetadata(content string) Metadata
	// ImportPaths returns the absolute paths referenced by content, which lives at filePath.
	ImportPaths(content, filePath string) []string
	// FileInputs returns the names of the File-typed inputs of the descriptor.
	FileInputs(content string) ([]string, error)
	// FileType returns the source file type of a descriptor file at path.
	FileType(filePath string) types.FileType
}

var plugins = map[types.DescriptorLanguage]Plugin{
	types.DescriptorLanguageCWL:      &CWL{},
	types.DescriptorLanguageWDL:      &WDL{},
	types.DescriptorLanguageNextflow: &Nextflow{},
}

func For(lang types.DescriptorLanguage) (Plugin, error) {
	p, ok := plugins[lang]
	if !ok {
		return nil, ErrUnsupportedLanguage.Msg("unsupported descriptor language: " + string(lang))
	}
	return p, nil
}

// resolvePath resolves ref against the directory of the file that mentions it.
// Remote references and document-local fragments return false.
func resolvePath(filePath, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.Contains(ref, "://") {
		return "", false
	}
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.HasPrefix(ref, "/") {
		return path.Clean(ref), true
	}
	dir := path.Dir("/" + strings.TrimPrefix(filePath, "/"))
	return path.Join(dir, ref), true
}

// checkCommon applies the rules shared by every language: the primary
// descriptor is not blank and every import was found.
func checkCommon(in ValidationInput) (Result, bool) {
	if strings.TrimSpace(in.Primary) == "" {
		return invalid(in.PrimaryPath + ": descriptor is empty"), false
	}
	if len(in.MissingImports) > 0 {
		return invalid("missing imported file(s): " + strings.Join(in.MissingImports, ", ")), false
	}
	return Result{}, true
}

// finish applies test parameter validation to a valid descriptor result.
func finish(lang types.DescriptorLanguage, r Result, in ValidationInput) Result {
	if !r.Valid {
		return r
	}
	return ValidateTestParameters(lang, in.TestParameters)
}
