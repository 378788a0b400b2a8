package language

import (
	"errors"
	"regexp"
	"strings"

	"github.com/mugiliam/hatchdockstore/pkg/types"
)

// WDL checks Workflow Description Language documents with a lexical scan:
// comments and strings are respected, braces must balance and the required
// blocks must be present.
type WDL struct{}

var (
	wdlImportRe   = regexp.MustCompile(`(?m)^\s*import\s+["']([^"']+)["']`)
	wdlWorkflowRe = regexp.MustCompile(`(?m)^\s*workflow\s+[A-Za-z_][A-Za-z0-9_]*\s*\{`)
	wdlTaskRe     = regexp.MustCompile(`(?m)^\s*task\s+[A-Za-z_][A-Za-z0-9_]*\s*\{`)
	wdlMetaRe     = regexp.MustCompile(`(?m)^\s*meta\s*\{`)
	wdlInputRe    = regexp.MustCompile(`(?m)^\s*input\s*\{`)
	wdlMetaKVRe   = regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*[:=]\s*"((?:[^"\\]|\\.)*)"`)
	wdlFileDeclRe = regexp.MustCompile(`^\s*(File\??|Array\[File\??\]\+?\??)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(=)?`)
)

func (w *WDL) Language() types.DescriptorLanguage {
	return types.DescriptorLanguageWDL
}

func (w *WDL) FileType(string) types.FileType {
	return types.FileTypeWDL
}

// stripWDLComments removes # comments outside of string literals.
func stripWDLComments(s string) string {
	var sb strings.Builder
	var quote byte
	inComment := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inComment:
			if ch == '\n' {
				inComment = false
				sb.WriteByte(ch)
			}
			continue
		case quote != 0:
			if ch == '\\' && i+1 < len(s) {
				sb.WriteByte(ch)
				i++
				sb.WriteByte(s[i])
				continue
			}
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#':
			inComment = true
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// checkBraces reports unbalanced braces outside string literals. Command
// sections use ${} and ~{} placeholders which balance on their own.
func checkBraces(s string) error {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return errors.New("unexpected '}'")
			}
		}
	}
	if quote != 0 {
		return errors.New("unterminated string")
	}
	if depth != 0 {
		return errors.New("unbalanced braces")
	}
	return nil
}

// blockBody returns the text between the brace that ends at open and its
// matching closing brace.
func blockBody(s string, open int) string {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i]
			}
		}
	}
	return s[open+1:]
}

func findBlock(re *regexp.Regexp, s string) (string, bool) {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return blockBody(s, loc[1]-1), true
}

func (w *WDL) Validate(in ValidationInput) Result {
	if r, ok := checkCommon(in); !ok {
		return r
	}
	src := stripWDLComments(in.Primary)
	if err := checkBraces(src); err != nil {
		return invalid(in.PrimaryPath + ": invalid WDL: " + err.Error())
	}
	hasWorkflow := wdlWorkflowRe.MatchString(src)
	if in.EntryType == types.EntryTypeTool {
		if !hasWorkflow && !wdlTaskRe.MatchString(src) {
			return invalid(in.PrimaryPath + ": a WDL tool needs a task or workflow block")
		}
	} else if !hasWorkflow {
		return invalid(in.PrimaryPath + ": missing workflow block")
	}
	for p, content := range in.Imports {
		if err := checkBraces(stripWDLComments(content)); err != nil {
			return invalid(p + ": invalid WDL: " + err.Error())
		}
	}
	return finish(types.DescriptorLanguageWDL, valid(), in)
}

// ExtractMetadata reads the meta section of the workflow, or of the first
// task when there is no workflow.
func (w *WDL) ExtractMetadata(content string) Metadata {
	var md Metadata
	src := stripWDLComments(content)
	body, ok := findBlock(wdlWorkflowRe, src)
	if !ok {
		body, ok = findBlock(wdlTaskRe, src)
	}
	if !ok {
		return md
	}
	meta, ok := findBlock(wdlMetaRe, body)
	if !ok {
		return md
	}
	for _, m := range wdlMetaKVRe.FindAllStringSubmatch(meta, -1) {
		val := strings.ReplaceAll(m[2], `\"`, `"`)
		switch strings.ToLower(m[1]) {
		case "author":
			md.Author = val
		case "email":
			md.Email = val
		case "description":
			md.Description = val
		}
	}
	return md
}

func (w *WDL) ImportPaths(content, filePath string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range wdlImportRe.FindAllStringSubmatch(stripWDLComments(content), -1) {
		if p, ok := resolvePath(filePath, m[1]); ok && !seen[p] {
			seen[p] = true
			refs = append(refs, p)
		}
	}
	return refs
}

// FileInputs returns File declarations of the workflow input section. Older
// documents without an input section declare inputs as unbound top level
// workflow declarations.
func (w *WDL) FileInputs(content string) ([]string, error) {
	src := stripWDLComments(content)
	if err := checkBraces(src); err != nil {
		return nil, err
	}
	body, ok := findBlock(wdlWorkflowRe, src)
	if !ok {
		return nil, errors.New("missing workflow block")
	}
	if input, ok := findBlock(wdlInputRe, body); ok {
		return fileDecls(input, true), nil
	}
	return fileDecls(topLevel(body), false), nil
}

// topLevel drops every nested block from body.
func topLevel(body string) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
			continue
		case '}':
			depth--
			continue
		}
		if depth == 0 {
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}

func fileDecls(s string, includeBound bool) []string {
	var names []string
	for _, line := range strings.Split(s, "\n") {
		m := wdlFileDeclRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[3] != "" && !includeBound {
			continue
		}
		names = append(names, m[2])
	}
	return names
}
