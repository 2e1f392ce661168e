package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInheritCycle is returned when an extract entry's inherit chain loops.
var ErrInheritCycle = errors.New("extract inheritance cycle")

// ErrMarkerNotFound is returned when a start-after/end-before marker never
// matches a line of the referenced file.
var ErrMarkerNotFound = errors.New("marker not found")

// ErrRefNotFound is returned when an extract ref has no entry in its family
// file.
var ErrRefNotFound = errors.New("extract ref not found")

// ParseError is a malformed directive or list, scoped to one node. Sibling
// content still parses.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// TransclusionError fails one include/literalinclude/extract reference. The
// enclosing procedure cannot be built; other procedures in the file are
// unaffected.
type TransclusionError struct {
	File string
	Ref  string
	Err  error
}

func (e *TransclusionError) Error() string {
	return fmt.Sprintf("%s: cannot resolve %q: %v", e.File, e.Ref, e.Err)
}

func (e *TransclusionError) Unwrap() error { return e.Err }

// VariantResolutionError fails the owning procedure when a variant dimension
// is internally inconsistent.
type VariantResolutionError struct {
	Dimension string
	Msg       string
}

func (e *VariantResolutionError) Error() string {
	return fmt.Sprintf("variant dimension %q: %s", e.Dimension, e.Msg)
}

// PlaceholderError fails only the containing action; it lists the canonical
// identities that could not be resolved.
type PlaceholderError struct {
	Unresolved []string
}

func (e *PlaceholderError) Error() string {
	return "unresolved placeholders: " + strings.Join(e.Unresolved, ", ")
}
