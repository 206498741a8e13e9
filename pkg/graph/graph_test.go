package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/chazu/cathedral/pkg/spiral"
)

func demoRun(t *testing.T, depth int) (spiral.Config, []spiral.Node) {
	t.Helper()
	g := spiral.New(spiral.WithDepth(depth))
	nodes, err := g.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return g.Config(), nodes
}

func TestNewLayout(t *testing.T) {
	l := New()
	if l.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if l.IDIndex == nil {
		t.Fatal("IDIndex map should be initialized")
	}
	if l.NodeCount() != 0 {
		t.Errorf("empty layout should have 0 nodes, got %d", l.NodeCount())
	}
	if l.Config != nil {
		t.Errorf("empty layout should have no config")
	}
}

func TestFromNodes(t *testing.T) {
	cfg, nodes := demoRun(t, 12)
	l, err := FromNodes(cfg, nodes)
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}
	if l.NodeCount() != 12 {
		t.Fatalf("node count = %d, want 12", l.NodeCount())
	}
	if l.Config == nil || l.Config.Seed != cfg.Seed {
		t.Errorf("layout config = %+v, want %+v", l.Config, cfg)
	}

	got := l.Ordered()
	for i, n := range got {
		if n.Index != i {
			t.Fatalf("Ordered()[%d].Index = %d", i, n.Index)
		}
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	_, nodes := demoRun(t, 3)
	l := New()
	for _, n := range nodes {
		if err := l.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}

	found, ok := l.Lookup("node-2")
	if !ok {
		t.Fatal("Lookup('node-2') missed")
	}
	if found.Index != 2 {
		t.Errorf("lookup returned index %d, want 2", found.Index)
	}

	if _, ok := l.Lookup("node-99"); ok {
		t.Error("Lookup should miss unknown id")
	}

	if got, ok := l.Get(1); !ok || got.ID != "node-1" {
		t.Errorf("Get(1) = %+v, %v", got, ok)
	}
}

func TestAddNodeIdempotent(t *testing.T) {
	_, nodes := demoRun(t, 2)
	l := New()
	for i := 0; i < 3; i++ {
		if err := l.AddNode(nodes[1]); err != nil {
			t.Fatalf("repeat AddNode: %v", err)
		}
	}
	if l.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", l.NodeCount())
	}
	if l.Version != 1 {
		t.Errorf("version = %d, want 1 (repeats are no-ops)", l.Version)
	}
}

func TestAddNodeConflict(t *testing.T) {
	l := New()
	a, err := spiral.New(spiral.WithRatio(1)).GenerateNode(4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := spiral.New(spiral.WithRatio(2)).GenerateNode(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.AddNode(a); err != nil {
		t.Fatal(err)
	}
	err = l.AddNode(b)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRootsAndChildren(t *testing.T) {
	cfg, nodes := demoRun(t, 30)
	l, err := FromNodes(cfg, nodes)
	if err != nil {
		t.Fatal(err)
	}

	if roots := l.Roots(); !slices.Equal(roots, []int{0}) {
		t.Errorf("roots = %v, want [0]", roots)
	}

	// Node 0 is the predecessor of 1 and the archetype echo of 22.
	if got := l.Children(0); !slices.Equal(got, []int{1, 22}) {
		t.Errorf("Children(0) = %v, want [1 22]", got)
	}
	if got := l.Children(29); len(got) != 0 {
		t.Errorf("Children(29) = %v, want none", got)
	}
}

func TestEdgeCount(t *testing.T) {
	cfg, nodes := demoRun(t, 30)
	l, err := FromNodes(cfg, nodes)
	if err != nil {
		t.Fatal(err)
	}
	// 29 predecessor links + 8 archetype echoes (22..29).
	if got := l.EdgeCount(); got != 37 {
		t.Errorf("EdgeCount() = %d, want 37", got)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	cfg, a := demoRun(t, 50)
	_, b := demoRun(t, 50)

	la, err := FromNodes(cfg, a)
	if err != nil {
		t.Fatal(err)
	}
	lb, err := FromNodes(cfg, b)
	if err != nil {
		t.Fatal(err)
	}
	if la.Fingerprint() != lb.Fingerprint() {
		t.Error("identical runs should have identical fingerprints")
	}

	other, err := spiral.New(spiral.WithDepth(50), spiral.WithSeed("other")).Run()
	if err != nil {
		t.Fatal(err)
	}
	lo, err := FromNodes(cfg, other)
	if err != nil {
		t.Fatal(err)
	}
	if lo.Fingerprint() == la.Fingerprint() {
		t.Error("different seeds should change the fingerprint")
	}
}

func TestFingerprintIgnoresInsertionOrder(t *testing.T) {
	cfg, nodes := demoRun(t, 10)
	forward, err := FromNodes(cfg, nodes)
	if err != nil {
		t.Fatal(err)
	}
	reversed := slices.Clone(nodes)
	slices.Reverse(reversed)
	backward, err := FromNodes(cfg, reversed)
	if err != nil {
		t.Fatal(err)
	}
	if forward.Fingerprint() != backward.Fingerprint() {
		t.Error("fingerprint should not depend on insertion order")
	}
}
