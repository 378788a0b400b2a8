package language

import (
	"context"
	"errors"
	"sort"

	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/rs/zerolog/log"
)

// FileReader reads a file of the version being resolved. Missing files must
// be reported with scm.ErrFileNotFound.
type FileReader func(ctx context.Context, path string) ([]byte, error)

// Imports is the outcome of import resolution.
type Imports struct {
	// Files maps absolute path to content.
	Files map[string]string
	// Missing lists referenced paths that were not found, sorted.
	Missing []string
}

// ResolveImports walks the import graph of the primary descriptor breadth
// first, reading every referenced file once. Files deeper than maxDepth are not
// followed. Any read error other than a missing file aborts the walk.
func ResolveImports(ctx context.Context, read FileReader, p Plugin, mainContent, mainPath string, maxDepth int) (*Imports, error) {
	res := &Imports{Files: make(map[string]string)}
	type item struct {
		path    string
		content string
		depth   int
	}
	seen := map[string]bool{mainPath: true}
	queue := []item{{path: mainPath, content: mainContent}}
	missing := make(map[string]bool)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			log.Ctx(ctx).Debug().Str("path", cur.path).Int("depth", cur.depth).Msg("import depth limit reached")
			continue
		}
		for _, ref := range p.ImportPaths(cur.content, cur.path) {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			b, err := read(ctx, ref)
			if err != nil {
				if errors.Is(err, scm.ErrFileNotFound) {
					missing[ref] = true
					continue
				}
				return nil, err
			}
			res.Files[ref] = string(b)
			queue = append(queue, item{path: ref, content: string(b), depth: cur.depth + 1})
		}
	}
	for m := range missing {
		res.Missing = append(res.Missing, m)
	}
	sort.Strings(res.Missing)
	return res, nil
}
