package tessellate_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/cathedral/pkg/graph"
	"github.com/chazu/cathedral/pkg/kernel"
	"github.com/chazu/cathedral/pkg/kernel/sdfx"
	"github.com/chazu/cathedral/pkg/spiral"
	"github.com/chazu/cathedral/pkg/tessellate"
)

// newKernel returns a coarse sdfx kernel so tests stay fast.
func newKernel() kernel.Kernel {
	return sdfx.NewWithCells(16)
}

// makeLayout generates a run of depth nodes with the default config.
func makeLayout(t *testing.T, depth int) *graph.Layout {
	t.Helper()
	g := spiral.New(spiral.WithDepth(depth))
	nodes, err := g.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	l, err := graph.FromNodes(g.Config(), nodes)
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}
	return l
}

func meshCenter(m *kernel.Mesh) [3]float64 {
	min, max := m.Bounds()
	return [3]float64{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
}

func TestTessellateNilLayout(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel(), tessellate.DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meshes != nil {
		t.Errorf("expected nil meshes, got %d", len(meshes))
	}
}

func TestTessellateEmptyLayout(t *testing.T) {
	meshes, err := tessellate.Tessellate(graph.New(), newKernel(), tessellate.DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meshes) != 0 {
		t.Errorf("expected 0 meshes, got %d", len(meshes))
	}
}

func TestTessellateMarkers(t *testing.T) {
	l := makeLayout(t, 6)
	meshes, err := tessellate.Tessellate(l, newKernel(), tessellate.DefaultOptions())
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 6 {
		t.Fatalf("expected 6 meshes, got %d", len(meshes))
	}

	const tol = 0.1
	for i, m := range meshes {
		n, _ := l.Get(i)
		if m.PartName != n.ID {
			t.Errorf("mesh %d: PartName = %q, want %q", i, m.PartName, n.ID)
		}
		if m.IsEmpty() {
			t.Errorf("mesh %d is empty", i)
			continue
		}
		c := meshCenter(m)
		p := n.Position
		if math.Abs(c[0]-p.X) > tol || math.Abs(c[1]-p.Y) > tol || math.Abs(c[2]-p.Z) > tol {
			t.Errorf("%s: marker centered at %v, node at %+v", n.ID, c, p)
		}
	}
}

func TestTessellateLinks(t *testing.T) {
	l := makeLayout(t, 24)
	opts := tessellate.DefaultOptions()
	opts.Links = true

	// Struts are thin; use a finer grid than the marker tests.
	meshes, err := tessellate.Tessellate(l, sdfx.NewWithCells(48), opts)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	// 24 markers, 23 predecessor links, 2 archetype echoes (22->0, 23->1).
	if len(meshes) != 24+23+2 {
		t.Fatalf("expected 49 meshes, got %d", len(meshes))
	}

	names := make(map[string]*kernel.Mesh)
	for _, m := range meshes {
		names[m.PartName] = m
	}
	for _, want := range []string{"node-0", "link-0-1", "link-0-22", "link-22-23", "link-1-23"} {
		if names[want] == nil {
			t.Errorf("missing mesh %q", want)
		}
	}

	// A strut's midpoint sits halfway between its endpoints.
	a, _ := l.Get(0)
	b, _ := l.Get(1)
	c := meshCenter(names["link-0-1"])
	const tol = 0.15
	mid := a.Position.Add(b.Position.Sub(a.Position).Scale(0.5))
	if math.Abs(c[0]-mid.X) > tol || math.Abs(c[1]-mid.Y) > tol || math.Abs(c[2]-mid.Z) > tol {
		t.Errorf("link-0-1 centered at %v, expected %+v", c, mid)
	}
}

func TestTessellateSkipsAbsentTargets(t *testing.T) {
	n, err := spiral.New().GenerateNode(13)
	if err != nil {
		t.Fatal(err)
	}
	l := graph.New()
	if err := l.AddNode(n); err != nil {
		t.Fatal(err)
	}
	opts := tessellate.DefaultOptions()
	opts.Links = true
	meshes, err := tessellate.Tessellate(l, newKernel(), opts)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 1 || meshes[0].PartName != "node-13" {
		t.Fatalf("expected only the node-13 marker, got %d meshes", len(meshes))
	}
}

func TestTessellateInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts tessellate.Options
	}{
		{"zero marker", tessellate.Options{MarkerRadius: 0}},
		{"negative marker", tessellate.Options{MarkerRadius: -1}},
		{"zero link", tessellate.Options{MarkerRadius: 1, Links: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tessellate.Tessellate(makeLayout(t, 2), newKernel(), tt.opts)
			if !errors.Is(err, tessellate.ErrInvalidOptions) {
				t.Errorf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestTessellateDoesNotMutate(t *testing.T) {
	l := makeLayout(t, 5)
	before := l.Fingerprint()
	version := l.Version
	opts := tessellate.DefaultOptions()
	opts.Links = true
	if _, err := tessellate.Tessellate(l, newKernel(), opts); err != nil {
		t.Fatal(err)
	}
	if l.Fingerprint() != before || l.Version != version {
		t.Error("Tessellate mutated the layout")
	}
}

func TestTessellateMergeLinks(t *testing.T) {
	l := makeLayout(t, 24)
	k := sdfx.NewWithCells(48)
	opts := tessellate.DefaultOptions()
	opts.Links = true

	separate, err := tessellate.Tessellate(l, k, opts)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	strutTriangles := 0
	for _, m := range separate {
		if strings.HasPrefix(m.PartName, "link-") {
			strutTriangles += m.TriangleCount()
		}
	}

	opts.MergeLinks = true
	merged, err := tessellate.Tessellate(l, k, opts)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(merged) != 24+1 {
		t.Fatalf("expected 24 markers and one links mesh, got %d meshes", len(merged))
	}
	for i, m := range merged[:24] {
		if m.PartName != spiral.NodeID(i) {
			t.Errorf("mesh %d: PartName = %q", i, m.PartName)
		}
	}
	links := merged[24]
	if links.PartName != tessellate.LinksPart {
		t.Fatalf("last mesh is %q, want %q", links.PartName, tessellate.LinksPart)
	}
	if links.TriangleCount() != strutTriangles {
		t.Errorf("merged links have %d triangles, separate struts %d", links.TriangleCount(), strutTriangles)
	}
	for _, idx := range links.Indices {
		if int(idx) >= links.VertexCount() {
			t.Fatalf("index %d out of range for %d vertices", idx, links.VertexCount())
		}
	}
}

func TestTessellateMergeLinksWithoutLinks(t *testing.T) {
	opts := tessellate.DefaultOptions()
	opts.MergeLinks = true
	meshes, err := tessellate.Tessellate(makeLayout(t, 3), newKernel(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 3 {
		t.Errorf("expected markers only, got %d meshes", len(meshes))
	}
}

func TestSolid(t *testing.T) {
	l := makeLayout(t, 4)
	opts := tessellate.DefaultOptions()
	opts.Links = true

	m, err := tessellate.Solid(l, sdfx.NewWithCells(32), opts)
	if err != nil {
		t.Fatalf("Solid: %v", err)
	}
	if m.PartName != tessellate.SolidPart {
		t.Errorf("PartName = %q, want %q", m.PartName, tessellate.SolidPart)
	}
	if m.IsEmpty() {
		t.Fatal("solid mesh is empty")
	}

	min, max := m.Bounds()
	const tol = 0.1
	for _, n := range l.Ordered() {
		p := [3]float64{n.Position.X, n.Position.Y, n.Position.Z}
		for i := range 3 {
			if p[i] < min[i]-tol || p[i] > max[i]+tol {
				t.Errorf("%s at %+v lies outside solid bounds %v..%v", n.ID, n.Position, min, max)
				break
			}
		}
	}
}

func TestSolidEmptyAndInvalid(t *testing.T) {
	m, err := tessellate.Solid(graph.New(), newKernel(), tessellate.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsEmpty() || m.PartName != tessellate.SolidPart {
		t.Errorf("empty layout gave %+v", m)
	}

	_, err = tessellate.Solid(makeLayout(t, 2), newKernel(), tessellate.Options{})
	if !errors.Is(err, tessellate.ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}
}
