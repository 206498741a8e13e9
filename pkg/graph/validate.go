package graph

import (
	"fmt"

	"github.com/chazu/cathedral/pkg/spiral"
)

// ValidationSeverity indicates whether a validation finding makes the layout
// unusable or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // layout is malformed
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// GraphLevel is the Index used for findings that concern the layout as a whole.
const GraphLevel = -1

// ValidationError describes a single validation finding.
type ValidationError struct {
	Index    int                // node index, or GraphLevel
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Index == GraphLevel {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, spiral.NodeID(e.Index), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Index   int    // node index, or GraphLevel
	Message string // human-readable description
}

func (w ValidationWarning) Error() string {
	return ValidationError{Index: w.Index, Message: w.Message, Severity: SeverityWarning}.Error()
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from both validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether the result carries no errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the structural checks on the layout and returns every
// finding. An empty slice means the layout is valid. It never mutates l.
func Validate(l *Layout) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateReferences(l)...)
	errs = append(errs, validateDAG(l)...)
	errs = append(errs, validateIdentity(l)...)
	errs = append(errs, validateRoots(l)...)
	return errs
}

// ValidateAll runs the structural and geometric tiers and separates errors
// from warnings.
func ValidateAll(l *Layout) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(l) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Index:   e.Index,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	geoWarnings := validateGeometry(l)
	result.Warnings = append(result.Warnings, geoWarnings...)
	return result
}

// validateReferences checks that every connection points strictly backwards.
// A connection to an index that is valid but absent from the layout is only
// a warning: scripts may request single nodes out of a run.
func validateReferences(l *Layout) []ValidationError {
	var errs []ValidationError
	for _, i := range l.Indices() {
		n := l.Nodes[i]
		for _, c := range n.Connections {
			switch {
			case c < 0:
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  fmt.Sprintf("connection %d is negative", c),
					Severity: SeverityError,
				})
			case c == i:
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  "connection to itself",
					Severity: SeverityError,
				})
			case c > i:
				errs = append(errs, ValidationError{
					Index:    i,
					Message:  fmt.Sprintf("forward connection to %s", spiral.NodeID(c)),
					Severity: SeverityError,
				})
			default:
				if _, ok := l.Nodes[c]; !ok {
					errs = append(errs, ValidationError{
						Index:    i,
						Message:  fmt.Sprintf("connection %s is not in the layout", spiral.NodeID(c)),
						Severity: SeverityWarning,
					})
				}
			}
		}
	}
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(l *Layout) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[int]int)
	var errs []ValidationError

	var visit func(i int) bool // returns true if cycle found
	visit = func(i int) bool {
		switch color[i] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("cycle detected through %s", spiral.NodeID(i)),
				Severity: SeverityError,
			})
			return true
		}

		color[i] = gray
		n, ok := l.Nodes[i]
		if !ok {
			// Absent target; reported by validateReferences.
			color[i] = black
			return false
		}
		for _, c := range n.Connections {
			if visit(c) {
				return true
			}
		}
		color[i] = black
		return false
	}

	for _, i := range l.Indices() {
		if color[i] == white && visit(i) {
			// One cycle error is sufficient.
			break
		}
	}
	return errs
}

// validateIdentity checks that IDs and archetypes are the ones derived from
// each node's index and that the ID index is consistent.
func validateIdentity(l *Layout) []ValidationError {
	var errs []ValidationError
	for _, i := range l.Indices() {
		n := l.Nodes[i]
		if n.Index != i {
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("stored under index %d but carries index %d", i, n.Index),
				Severity: SeverityError,
			})
		}
		if want := spiral.NodeID(i); n.ID != want {
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("id %q, want %q", n.ID, want),
				Severity: SeverityError,
			})
		}
		if want := spiral.ArchetypeOf(i); n.Archetype != want {
			errs = append(errs, ValidationError{
				Index:    i,
				Message:  fmt.Sprintf("archetype %s, want %s", n.Archetype, want),
				Severity: SeverityError,
			})
		}
	}

	for id, idx := range l.IDIndex {
		n, ok := l.Nodes[idx]
		if !ok {
			errs = append(errs, ValidationError{
				Index:    GraphLevel,
				Message:  fmt.Sprintf("id index entry %q references missing index %d", id, idx),
				Severity: SeverityError,
			})
			continue
		}
		if n.ID != id {
			errs = append(errs, ValidationError{
				Index:    GraphLevel,
				Message:  fmt.Sprintf("id index entry %q points at %s", id, n.ID),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots warns when a non-empty layout has no root. Index 0 is the
// only node the generator emits without connections.
func validateRoots(l *Layout) []ValidationError {
	if l.NodeCount() == 0 || len(l.Roots()) > 0 {
		return nil
	}
	return []ValidationError{{
		Index:    GraphLevel,
		Message:  "layout has no root node",
		Severity: SeverityWarning,
	}}
}
