package graph

import (
	"strings"
	"testing"

	"github.com/chazu/cathedral/pkg/spiral"
)

// makeNode builds a node with the derived ID and archetype and the given
// connections, bypassing the generator so tests can inject faults.
func makeNode(index int, conns ...int) spiral.Node {
	if conns == nil {
		conns = []int{}
	}
	return spiral.Node{
		ID:          spiral.NodeID(index),
		Index:       index,
		Archetype:   spiral.ArchetypeOf(index),
		Position:    spiral.Vec3{X: float64(index), Z: float64(index)},
		Connections: conns,
	}
}

func layoutOf(t *testing.T, nodes ...spiral.Node) *Layout {
	t.Helper()
	l := New()
	for _, n := range nodes {
		if err := l.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	return l
}

func hasFinding(errs []ValidationError, severity ValidationSeverity, substr string) bool {
	for _, e := range errs {
		if e.Severity == severity && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateGeneratedRun(t *testing.T) {
	nodes, err := spiral.New(spiral.WithDepth(100)).Run()
	if err != nil {
		t.Fatal(err)
	}
	l := layoutOf(t, nodes...)
	if errs := Validate(l); len(errs) != 0 {
		t.Fatalf("generated run should validate cleanly, got %v", errs)
	}
	res := ValidateAll(l)
	if !res.OK() || len(res.Warnings) != 0 {
		t.Fatalf("ValidateAll: errors=%v warnings=%v", res.Errors, res.Warnings)
	}
}

func TestValidateEmptyLayout(t *testing.T) {
	if errs := Validate(New()); len(errs) != 0 {
		t.Errorf("empty layout should be valid, got %v", errs)
	}
}

func TestValidateReferences(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []spiral.Node
		severity ValidationSeverity
		want     string
	}{
		{
			name:     "forward reference",
			nodes:    []spiral.Node{makeNode(0), makeNode(1, 2), makeNode(2, 1)},
			severity: SeverityError,
			want:     "forward connection",
		},
		{
			name:     "self reference",
			nodes:    []spiral.Node{makeNode(0), makeNode(1, 1)},
			severity: SeverityError,
			want:     "itself",
		},
		{
			name:     "negative reference",
			nodes:    []spiral.Node{makeNode(0, -1)},
			severity: SeverityError,
			want:     "negative",
		},
		{
			name:     "absent target",
			nodes:    []spiral.Node{makeNode(13, 12)},
			severity: SeverityWarning,
			want:     "not in the layout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(layoutOf(t, tt.nodes...))
			if !hasFinding(errs, tt.severity, tt.want) {
				t.Errorf("expected %s containing %q, got %v", tt.severity, tt.want, errs)
			}
		})
	}
}

func TestValidateDAGCycle(t *testing.T) {
	l := layoutOf(t, makeNode(0), makeNode(1, 2), makeNode(2, 1))
	errs := validateDAG(l)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one cycle error, got %v", errs)
	}
	if !strings.Contains(errs[0].Message, "cycle") {
		t.Errorf("unexpected message %q", errs[0].Message)
	}
}

func TestValidateIdentity(t *testing.T) {
	badID := makeNode(3, 2)
	badID.ID = "node-x"
	badArch := makeNode(4, 3)
	badArch.Archetype = 9

	l := layoutOf(t, makeNode(0), badID, badArch)
	errs := validateIdentity(l)
	if !hasFinding(errs, SeverityError, `id "node-x"`) {
		t.Errorf("expected bad id finding, got %v", errs)
	}
	if !hasFinding(errs, SeverityError, "archetype A-9") {
		t.Errorf("expected bad archetype finding, got %v", errs)
	}
}

func TestValidateIndexMismatch(t *testing.T) {
	l := New()
	n := makeNode(5, 4)
	l.Nodes[6] = n
	errs := validateIdentity(l)
	if !hasFinding(errs, SeverityError, "carries index 5") {
		t.Errorf("expected index mismatch, got %v", errs)
	}
}

func TestValidateStaleIDIndex(t *testing.T) {
	l := layoutOf(t, makeNode(0))
	l.IDIndex["node-7"] = 7
	errs := validateIdentity(l)
	if !hasFinding(errs, SeverityError, "missing index 7") {
		t.Errorf("expected stale id index finding, got %v", errs)
	}
}

func TestValidateNoRoot(t *testing.T) {
	l := layoutOf(t, makeNode(5, 4), makeNode(6, 5))
	errs := validateRoots(l)
	if !hasFinding(errs, SeverityWarning, "no root") {
		t.Errorf("expected no-root warning, got %v", errs)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Index: 3, Message: "broken", Severity: SeverityError}
	if got := e.Error(); got != "[error] node-3: broken" {
		t.Errorf("Error() = %q", got)
	}
	g := ValidationError{Index: GraphLevel, Message: "empty", Severity: SeverityWarning}
	if got := g.Error(); got != "[warning] empty" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationWarningString(t *testing.T) {
	w := ValidationWarning{Index: 44, Message: "connection to 43 is not in the layout"}
	if got := w.Error(); got != "[warning] node-44: connection to 43 is not in the layout" {
		t.Errorf("Error() = %q", got)
	}
	g := ValidationWarning{Index: GraphLevel, Message: "no root"}
	if got := g.Error(); got != "[warning] no root" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityError.String() != "error" || SeverityWarning.String() != "warning" {
		t.Error("unexpected severity names")
	}
	if got := ValidationSeverity(7).String(); got != "ValidationSeverity(7)" {
		t.Errorf("unknown severity = %q", got)
	}
}

func TestValidateAllSeparatesWarnings(t *testing.T) {
	l := layoutOf(t, makeNode(13, 12))
	res := ValidateAll(l)
	if !res.OK() {
		t.Fatalf("absent target should not be an error: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected warnings")
	}
}
