package language

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/mugiliam/hatchdockstore/pkg/types"
	"gopkg.in/yaml.v3"
)

// CWL handles Common Workflow Language documents, including packed documents
// whose processes live under $graph.
type CWL struct{}

func (c *CWL) Language() types.DescriptorLanguage {
	return types.DescriptorLanguageCWL
}

func (c *CWL) FileType(string) types.FileType {
	return types.FileTypeCWL
}

func parseCWL(content string) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, errors.New("document is not a mapping")
	}
	return m, nil
}

// mainProcess returns the document itself or the #main process of a packed document.
func mainProcess(doc map[string]any) (map[string]any, error) {
	g, ok := doc["$graph"]
	if !ok {
		return doc, nil
	}
	list, ok := g.([]any)
	if !ok || len(list) == 0 {
		return nil, errors.New("$graph must be a non-empty list")
	}
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := m["id"].(string); id == "#main" || id == "main" {
			return m, nil
		}
	}
	if len(list) == 1 {
		if m, ok := list[0].(map[string]any); ok {
			return m, nil
		}
	}
	return nil, errors.New("$graph has no #main process")
}

func expectedCWLClass(t types.EntryType) string {
	if t == types.EntryTypeTool {
		return "CommandLineTool"
	}
	return "Workflow"
}

func cwlClassMatches(t types.EntryType, class string) bool {
	if t == types.EntryTypeTool {
		return class == "CommandLineTool" || class == "ExpressionTool"
	}
	return class == "Workflow"
}

func (c *CWL) Validate(in ValidationInput) Result {
	if r, ok := checkCommon(in); !ok {
		return r
	}
	doc, err := parseCWL(in.Primary)
	if err != nil {
		return invalid(in.PrimaryPath + ": invalid CWL: " + err.Error())
	}
	if v, _ := doc["cwlVersion"].(string); v == "" {
		return invalid(in.PrimaryPath + ": missing cwlVersion")
	}
	main, err := mainProcess(doc)
	if err != nil {
		return invalid(in.PrimaryPath + ": " + err.Error())
	}
	class, _ := main["class"].(string)
	if class == "" {
		return invalid(in.PrimaryPath + ": missing class")
	}
	if !cwlClassMatches(in.EntryType, class) {
		return invalid(fmt.Sprintf("%s: expected a %s but found a %s", in.PrimaryPath, expectedCWLClass(in.EntryType), class))
	}

	paths := make([]string, 0, len(in.Imports))
	for p := range in.Imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		switch strings.ToLower(path.Ext(p)) {
		case ".cwl", ".yml", ".yaml":
			if _, err := parseCWL(in.Imports[p]); err != nil {
				return invalid(p + ": invalid CWL: " + err.Error())
			}
		}
	}
	return finish(types.DescriptorLanguageCWL, valid(), in)
}

// ExtractMetadata reads schema.org and Dublin Core annotations, falling back
// from the document root to its main process.
func (c *CWL) ExtractMetadata(content string) Metadata {
	var md Metadata
	doc, err := parseCWL(content)
	if err != nil {
		return md
	}
	sources := []map[string]any{doc}
	if main, err := mainProcess(doc); err == nil {
		sources = append(sources, main)
	}
	for _, src := range sources {
		if md.Author == "" {
			for _, key := range []string{"s:author", "dct:creator", "s:creator"} {
				if v, ok := src[key]; ok {
					md.Author, md.Email = cwlPerson(v)
					break
				}
			}
		}
		if md.Description == "" {
			if d, ok := src["doc"].(string); ok {
				md.Description = strings.TrimSpace(d)
			} else if l, ok := src["label"].(string); ok {
				md.Description = strings.TrimSpace(l)
			}
		}
	}
	return md
}

func cwlPerson(v any) (name, email string) {
	switch p := v.(type) {
	case string:
		return p, ""
	case []any:
		if len(p) > 0 {
			return cwlPerson(p[0])
		}
	case map[string]any:
		for _, k := range []string{"s:name", "foaf:name", "name"} {
			if s, ok := p[k].(string); ok {
				name = s
				break
			}
		}
		for _, k := range []string{"s:email", "foaf:mbox", "email"} {
			if s, ok := p[k].(string); ok {
				email = strings.TrimPrefix(s, "mailto:")
				break
			}
		}
	}
	return name, email
}

// ImportPaths follows run, $import and $include references.
func (c *CWL) ImportPaths(content, filePath string) []string {
	doc, err := parseCWL(content)
	if err != nil {
		return nil
	}
	var refs []string
	seen := make(map[string]bool)
	var walk func(v any)
	walk = func(v any) {
		switch n := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(n))
			for k := range n {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if k == "run" || k == "$import" || k == "$include" {
					if s, ok := n[k].(string); ok {
						if p, ok := resolvePath(filePath, s); ok && !seen[p] {
							seen[p] = true
							refs = append(refs, p)
						}
						continue
					}
				}
				walk(n[k])
			}
		case []any:
			for _, it := range n {
				walk(it)
			}
		}
	}
	walk(doc)
	return refs
}

func (c *CWL) FileInputs(content string) ([]string, error) {
	doc, err := parseCWL(content)
	if err != nil {
		return nil, err
	}
	main, err := mainProcess(doc)
	if err != nil {
		return nil, err
	}
	var names []string
	switch inputs := main["inputs"].(type) {
	case []any:
		for _, it := range inputs {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			id, _ := m["id"].(string)
			if id != "" && cwlIsFileType(m["type"]) {
				names = append(names, cwlInputName(id))
			}
		}
	case map[string]any:
		ids := make([]string, 0, len(inputs))
		for id := range inputs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if cwlIsFileType(inputs[id]) {
				names = append(names, cwlInputName(id))
			}
		}
	}
	return names, nil
}

// cwlIsFileType accepts File, File?, File[], optional unions and array schemas of File.
func cwlIsFileType(t any) bool {
	switch v := t.(type) {
	case string:
		s := v
		for {
			trimmed := strings.TrimSuffix(strings.TrimSuffix(s, "?"), "[]")
			if trimmed == s {
				break
			}
			s = trimmed
		}
		return s == "File"
	case []any:
		for _, it := range v {
			if cwlIsFileType(it) {
				return true
			}
		}
	case map[string]any:
		if v["type"] == "array" {
			return cwlIsFileType(v["items"])
		}
		return cwlIsFileType(v["type"])
	}
	return false
}

func cwlInputName(id string) string {
	id = strings.TrimPrefix(id, "#")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}
