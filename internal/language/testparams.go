package language

import (
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"
)

var errInvalidJSON = errors.New("not valid JSON")

// TestParameterJSON returns the JSON form of a test parameter file. CWL
// accepts YAML files, every other combination must already be JSON.
func TestParameterJSON(lang types.DescriptorLanguage, filePath, content string) ([]byte, error) {
	ext := strings.ToLower(path.Ext(filePath))
	if lang == types.DescriptorLanguageCWL && (ext == ".yml" || ext == ".yaml") {
		b, err := yaml.YAMLToJSON([]byte(content))
		if err != nil {
			return nil, err
		}
		if string(b) == "null" {
			return nil, errors.New("document is empty")
		}
		return b, nil
	}
	if !gjson.Valid(content) {
		return nil, errInvalidJSON
	}
	return []byte(content), nil
}

// ValidateTestParameters fails when any of the files does not parse. No files is valid.
func ValidateTestParameters(lang types.DescriptorLanguage, files map[string]string) Result {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var problems []string
	for _, p := range paths {
		if _, err := TestParameterJSON(lang, p, files[p]); err != nil {
			problems = append(problems, p+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return invalid("invalid test parameter file(s): " + strings.Join(problems, "; "))
	}
	return valid()
}
