// Package transclude resolves include, literalinclude and extract-file
// references into literal text before the procedure model is built.
//
// Plain includes read a file (optionally sliced by start-after/end-before
// markers). Extract references do not name a file on disk: they identify one
// entry, keyed by ref, inside a sibling YAML file that aggregates all
// extracts of a family. Extract entries support recursive inheritance with
// token substitution; resolution is memoized and cycle-checked.
package transclude

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dverity/docdrill/pkg/domain"
)

// Resolver resolves transclusion references for one project.
type Resolver struct {
	// sourceRoot is the project "source" directory that absolute reference
	// paths (starting with "/") are resolved against.
	sourceRoot string

	extracts *extractCache
}

// NewResolver creates a resolver rooted at the given source directory.
func NewResolver(sourceRoot string) *Resolver {
	return &Resolver{
		sourceRoot: sourceRoot,
		extracts:   newExtractCache(),
	}
}

// Resolve returns the literal text to splice in place of the given include
// or literalinclude node.
func (r *Resolver) Resolve(node *domain.DirectiveNode) (string, error) {
	ref := strings.TrimSpace(node.Args)
	if ref == "" {
		return "", &domain.TransclusionError{File: node.File, Ref: ref, Err: fmt.Errorf("empty reference")}
	}

	if isExtractRef(ref) {
		text, err := r.resolveExtract(node.File, ref)
		if err != nil {
			return "", &domain.TransclusionError{File: node.File, Ref: ref, Err: err}
		}
		return text, nil
	}

	path := r.refPath(node.File, ref)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.TransclusionError{File: node.File, Ref: ref, Err: err}
	}
	text := string(data)

	startAfter, _ := node.Option("start-after")
	endBefore, _ := node.Option("end-before")
	text, err = slice(text, startAfter, endBefore)
	if err != nil {
		return "", &domain.TransclusionError{File: node.File, Ref: ref, Err: err}
	}
	return text, nil
}

// refPath maps a reference to a path on disk. References starting with "/"
// are relative to the project source root; anything else is relative to the
// directory of the referencing file.
func (r *Resolver) refPath(fromFile, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return filepath.Join(r.sourceRoot, ref)
	}
	return filepath.Join(filepath.Dir(fromFile), ref)
}

// slice cuts the text between the first line matching startAfter and the
// first line matching endBefore, both exclusive. An empty marker means file
// top / file end respectively. A marker that never matches is an error.
func slice(text, startAfter, endBefore string) (string, error) {
	lines := strings.Split(text, "\n")
	start := 0
	if startAfter != "" {
		idx := matchLine(lines, startAfter, 0)
		if idx < 0 {
			return "", fmt.Errorf("start-after %q: %w", startAfter, domain.ErrMarkerNotFound)
		}
		start = idx + 1
	}
	end := len(lines)
	if endBefore != "" {
		idx := matchLine(lines, endBefore, start)
		if idx < 0 {
			return "", fmt.Errorf("end-before %q: %w", endBefore, domain.ErrMarkerNotFound)
		}
		end = idx
	}
	return strings.Join(lines[start:end], "\n"), nil
}

func matchLine(lines []string, marker string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.Contains(lines[i], marker) {
			return i
		}
	}
	return -1
}

// isExtractRef reports whether the reference path identifies an extract
// entry rather than a literal file: any path with a directory segment named
// "extracts" or starting with "extracts-".
func isExtractRef(ref string) bool {
	for _, seg := range strings.Split(ref, "/") {
		if seg == "extracts" || strings.HasPrefix(seg, "extracts-") {
			return true
		}
	}
	return false
}
