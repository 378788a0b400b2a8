// Package dockstoreyml parses the .dockstore.yml file a repository uses to
// declare the workflows and tools it contains.
package dockstoreyml

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/internal/schemavalidator"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"
)

// Path is where the file is looked up in a repository.
const Path = "/.dockstore.yml"

//go:embed schema.json
var schema string

var ErrInvalidDockstoreYml apperrors.Error = apperrors.New("invalid .dockstore.yml").SetStatusCode(http.StatusBadRequest).SetExpandError(true)

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Filters struct {
	Branches []string `json:"branches"`
	Tags     []string `json:"tags"`
}

// Entry is one workflow or tool declared in the file.
type Entry struct {
	Name                  string   `json:"name"`
	Subclass              string   `json:"subclass"`
	PrimaryDescriptorPath string   `json:"primaryDescriptorPath"`
	TestParameterFiles    []string `json:"testParameterFiles"`
	Publish               bool     `json:"publish"`
	LatestTagAsDefault    bool     `json:"latestTagAsDefault"`
	Authors               []Author `json:"authors"`
	Filters               Filters  `json:"filters"`

	EntryType types.EntryType          `json:"-"`
	Language  types.DescriptorLanguage `json:"-"`
}

type File struct {
	Version   string  `json:"-"`
	Workflows []Entry `json:"workflows"`
	Tools     []Entry `json:"tools"`
}

// Entries returns the workflows followed by the tools.
func (f *File) Entries() []Entry {
	return append(append([]Entry(nil), f.Workflows...), f.Tools...)
}

// Parse converts the YAML to JSON, validates it against the embedded schema
// and checks the rules a schema cannot express.
func Parse(content []byte) (*File, error) {
	js, err := yaml.YAMLToJSON(content)
	if err != nil {
		return nil, ErrInvalidDockstoreYml.Err(err)
	}
	if ves := schemavalidator.ValidateJsonSchema(schema, js); ves != nil {
		return nil, ErrInvalidDockstoreYml.Err(ves)
	}
	f := &File{}
	if err := json.Unmarshal(js, f); err != nil {
		return nil, ErrInvalidDockstoreYml.Err(err)
	}
	f.Version = gjson.GetBytes(js, "version").String()

	var problems []string
	check := func(kind string, entries []Entry, entryType types.EntryType) {
		names := make(map[string]bool)
		for i := range entries {
			e := &entries[i]
			e.EntryType = entryType
			lang, ok := types.ParseDescriptorLanguage(e.Subclass)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s[%d]: unsupported subclass %q", kind, i, e.Subclass))
			}
			e.Language = lang
			if !schemavalidator.ValidDescriptorPath(e.PrimaryDescriptorPath) {
				problems = append(problems, fmt.Sprintf("%s[%d]: invalid primaryDescriptorPath %q", kind, i, e.PrimaryDescriptorPath))
			}
			for _, tp := range e.TestParameterFiles {
				if !schemavalidator.ValidDescriptorPath(tp) {
					problems = append(problems, fmt.Sprintf("%s[%d]: invalid test parameter file %q", kind, i, tp))
				}
			}
			if names[e.Name] {
				problems = append(problems, fmt.Sprintf("%s[%d]: duplicate name %q", kind, i, e.Name))
			}
			names[e.Name] = true
		}
		if len(entries) > 1 && names[""] {
			problems = append(problems, kind+": every entry needs a name when there is more than one")
		}
	}
	check("workflows", f.Workflows, types.EntryTypeWorkflow)
	check("tools", f.Tools, types.EntryTypeTool)
	if len(problems) > 0 {
		return nil, ErrInvalidDockstoreYml.Msg("invalid .dockstore.yml: " + strings.Join(problems, "; "))
	}
	return f, nil
}

// Accepts reports whether the filters allow a reference. No filter accepts
// everything; a pattern is a glob or, between slashes, a regular expression.
func (f Filters) Accepts(name string, refType types.ReferenceType) bool {
	var patterns []string
	switch refType {
	case types.ReferenceTypeBranch:
		patterns = f.Branches
	case types.ReferenceTypeTag:
		patterns = f.Tags
	}
	if len(f.Branches) == 0 && len(f.Tags) == 0 {
		return true
	}
	for _, p := range patterns {
		if len(p) > 2 && strings.HasPrefix(p, "/") && strings.HasSuffix(p, "/") {
			if re, err := regexp.Compile("^" + p[1:len(p)-1] + "$"); err == nil && re.MatchString(name) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
