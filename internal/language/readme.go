package language

import (
	"context"
	"errors"
	"strings"

	"github.com/mugiliam/hatchdockstore/internal/scm"
)

// ReadmeCandidates are tried in order when a descriptor carries no description.
var ReadmeCandidates = []string{
	"README.md",
	"readme.md",
	"/README.md",
	"/readme.md",
	"README",
	"readme",
	"/README",
	"/readme",
}

// ReadReadme returns the path and content of the first README found. ok is
// false when there is none.
func ReadReadme(ctx context.Context, read FileReader) (path, content string, ok bool, err error) {
	for _, c := range ReadmeCandidates {
		b, err := read(ctx, c)
		if err != nil {
			if errors.Is(err, scm.ErrFileNotFound) {
				continue
			}
			return "", "", false, err
		}
		return c, string(b), true, nil
	}
	return "", "", false, nil
}

// ResolveMetadata extracts the descriptor metadata and falls back to the
// repository README for the description.
func ResolveMetadata(ctx context.Context, p Plugin, content string, read FileReader) (Metadata, error) {
	md := p.ExtractMetadata(content)
	if md.Description != "" {
		return md, nil
	}
	_, readme, ok, err := ReadReadme(ctx, read)
	if err != nil {
		return md, err
	}
	if ok {
		md.Description = strings.TrimSpace(readme)
	}
	return md, nil
}
