package language

import (
	"path"
	"regexp"
	"strings"

	"github.com/mugiliam/hatchdockstore/pkg/types"
)

const defaultMainScript = "main.nf"

// Nextflow treats nextflow.config as the primary descriptor. The manifest
// names the main script, which pulls in modules with include statements.
type Nextflow struct{}

var (
	nfManifestRe = regexp.MustCompile(`(?m)^\s*manifest\s*\{`)
	nfKVRe       = regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)
	nfDottedRe   = regexp.MustCompile(`(?m)^\s*manifest\.([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)
	nfIncludeRe  = regexp.MustCompile(`(?m)^\s*include\s*(?:\{[^}]*\}|[A-Za-z_][A-Za-z0-9_]*(?:\s+as\s+[A-Za-z_][A-Za-z0-9_]*)?)\s*from\s*['"]([^'"]+)['"]`)
)

func (n *Nextflow) Language() types.DescriptorLanguage {
	return types.DescriptorLanguageNextflow
}

func (n *Nextflow) FileType(filePath string) types.FileType {
	if strings.HasSuffix(filePath, ".config") {
		return types.FileTypeNextflowConfig
	}
	return types.FileTypeNextflow
}

// stripGroovyComments removes // and /* */ comments outside string literals.
func stripGroovyComments(s string) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			sb.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				sb.WriteByte('\n')
			}
			continue
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return sb.String()
			}
			i += end + 3
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// manifest returns the manifest attributes of a nextflow.config.
func manifest(content string) map[string]string {
	src := stripGroovyComments(content)
	attrs := make(map[string]string)
	collect := func(re *regexp.Regexp, s string) {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			v := m[2]
			if v == "" {
				v = m[3]
			}
			attrs[m[1]] = v
		}
	}
	if body, ok := findBlock(nfManifestRe, src); ok {
		collect(nfKVRe, body)
	}
	collect(nfDottedRe, src)
	return attrs
}

func (n *Nextflow) mainScript(configPath, content string) string {
	script := manifest(content)["mainScript"]
	if script == "" {
		script = defaultMainScript
	}
	p, _ := resolvePath(configPath, script)
	return p
}

func (n *Nextflow) Validate(in ValidationInput) Result {
	if r, ok := checkCommon(in); !ok {
		return r
	}
	src := stripGroovyComments(in.Primary)
	if err := checkBraces(src); err != nil {
		return invalid(in.PrimaryPath + ": invalid nextflow config: " + err.Error())
	}
	main := n.mainScript(in.PrimaryPath, in.Primary)
	script, ok := in.Imports[main]
	if !ok {
		return invalid(in.PrimaryPath + ": main script " + main + " not found")
	}
	if strings.TrimSpace(script) == "" {
		return invalid(main + ": main script is empty")
	}
	return finish(types.DescriptorLanguageNextflow, valid(), in)
}

func (n *Nextflow) ExtractMetadata(content string) Metadata {
	attrs := manifest(content)
	return Metadata{
		Author:      attrs["author"],
		Description: attrs["description"],
	}
}

// ImportPaths returns the main script for a config file and the included
// modules for a script.
func (n *Nextflow) ImportPaths(content, filePath string) []string {
	if strings.HasSuffix(filePath, ".config") {
		return []string{n.mainScript(filePath, content)}
	}
	var refs []string
	seen := make(map[string]bool)
	for _, m := range nfIncludeRe.FindAllStringSubmatch(stripGroovyComments(content), -1) {
		ref := m[1]
		if path.Ext(ref) == "" {
			ref += ".nf"
		}
		if p, ok := resolvePath(filePath, ref); ok && !seen[p] {
			seen[p] = true
			refs = append(refs, p)
		}
	}
	return refs
}

// FileInputs is always empty, Nextflow parameters carry no types.
func (n *Nextflow) FileInputs(string) ([]string, error) {
	return nil, nil
}
