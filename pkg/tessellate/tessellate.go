// Package tessellate walks a layout graph and produces triangle meshes
// using a geometry kernel: one marker mesh per node and, optionally, one
// strut mesh per connection. Solid instead fuses the whole layout into a
// single closed surface for export.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/cathedral/pkg/graph"
	"github.com/chazu/cathedral/pkg/kernel"
	"github.com/chazu/cathedral/pkg/spiral"
)

// ErrInvalidOptions is returned for non-positive marker or link radii.
var ErrInvalidOptions = errors.New("tessellate: invalid options")

// Part names for meshes that do not belong to a single node.
const (
	LinksPart = "links"
	SolidPart = "layout"
)

// Options controls marker and strut geometry.
type Options struct {
	MarkerRadius float64 // sphere radius at each node
	Links        bool    // emit a strut per connection
	LinkRadius   float64 // strut radius, must be below MarkerRadius
	MergeLinks   bool    // collect all struts into one LinksPart mesh
}

// DefaultOptions returns marker-only tessellation at a radius that keeps
// adjacent markers of a default-ratio spiral apart.
func DefaultOptions() Options {
	return Options{
		MarkerRadius: 0.3,
		Links:        false,
		LinkRadius:   0.08,
	}
}

func (o Options) validate() error {
	if !(o.MarkerRadius > 0) {
		return fmt.Errorf("%w: marker radius %v", ErrInvalidOptions, o.MarkerRadius)
	}
	if o.Links && !(o.LinkRadius > 0) {
		return fmt.Errorf("%w: link radius %v", ErrInvalidOptions, o.LinkRadius)
	}
	return nil
}

// LinkName is the PartName given to the strut between two nodes.
func LinkName(from, to int) string {
	return fmt.Sprintf("link-%d-%d", from, to)
}

// Tessellate produces meshes for the layout in index order: for each node its
// marker, followed by its struts in connection order when enabled. With
// MergeLinks the struts are instead appended into a single LinksPart mesh
// that follows every marker. Struts to nodes missing from the layout are
// skipped. The layout is never mutated.
func Tessellate(l *graph.Layout, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if l == nil {
		return nil, nil
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var (
		meshes []*kernel.Mesh
		links  *kernel.Mesh
	)
	for _, n := range l.Ordered() {
		m, err := marker(k, n, opts.MarkerRadius)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)

		if !opts.Links {
			continue
		}
		for _, c := range n.Connections {
			target, ok := l.Get(c)
			if !ok {
				continue
			}
			s, err := strut(k, target.Position, n.Position, opts.LinkRadius)
			if err != nil {
				return nil, fmt.Errorf("tessellate: link %s: %w", LinkName(c, n.Index), err)
			}
			if s == nil {
				continue
			}
			if opts.MergeLinks {
				if links == nil {
					links = &kernel.Mesh{PartName: LinksPart}
				}
				links.Append(s)
				continue
			}
			s.PartName = LinkName(c, n.Index)
			meshes = append(meshes, s)
		}
	}
	if links != nil {
		meshes = append(meshes, links)
	}
	return meshes, nil
}

// Solid unions every marker, and every strut when Links is set, into one
// kernel solid and meshes it once. Overlapping parts fuse, so the result is
// a single closed surface named SolidPart. An empty layout yields an empty
// mesh.
func Solid(l *graph.Layout, k kernel.Kernel, opts Options) (*kernel.Mesh, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if l == nil || l.NodeCount() == 0 {
		return &kernel.Mesh{PartName: SolidPart}, nil
	}

	var acc kernel.Solid
	add := func(s kernel.Solid) {
		if acc == nil {
			acc = s
			return
		}
		acc = k.Union(acc, s)
	}
	for _, n := range l.Ordered() {
		add(markerSolid(k, n.Position, opts.MarkerRadius))
		if !opts.Links {
			continue
		}
		for _, c := range n.Connections {
			target, ok := l.Get(c)
			if !ok {
				continue
			}
			if s := strutSolid(k, target.Position, n.Position, opts.LinkRadius); s != nil {
				add(s)
			}
		}
	}

	mesh, err := k.ToMesh(acc)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", SolidPart, err)
	}
	mesh.PartName = SolidPart
	return mesh, nil
}

// marker builds the sphere mesh for one node.
func marker(k kernel.Kernel, n spiral.Node, radius float64) (*kernel.Mesh, error) {
	mesh, err := k.ToMesh(markerSolid(k, n.Position, radius))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", n.ID, err)
	}
	mesh.PartName = n.ID
	return mesh, nil
}

func markerSolid(k kernel.Kernel, p spiral.Vec3, radius float64) kernel.Solid {
	return k.Translate(k.Sphere(radius), p.X, p.Y, p.Z)
}

// strut builds a cylinder mesh from a to b. It returns nil for coincident
// points.
func strut(k kernel.Kernel, a, b spiral.Vec3, radius float64) (*kernel.Mesh, error) {
	solid := strutSolid(k, a, b, radius)
	if solid == nil {
		return nil, nil
	}
	return k.ToMesh(solid)
}

func strutSolid(k kernel.Kernel, a, b spiral.Vec3, radius float64) kernel.Solid {
	d := b.Sub(a)
	length := d.Length()
	if length == 0 {
		return nil
	}
	yaw, pitch := orient(d)
	mid := a.Add(d.Scale(0.5))

	solid := k.Cylinder(length, radius, 16)
	solid = k.Rotate(solid, 0, pitch, yaw)
	return k.Translate(solid, mid.X, mid.Y, mid.Z)
}

// orient returns the Z then Y rotation, in degrees, that turns the +Z axis
// onto direction d.
func orient(d spiral.Vec3) (yaw, pitch float64) {
	pitch = math.Acos(d.Z/d.Length()) * 180 / math.Pi
	yaw = math.Atan2(d.Y, d.X) * 180 / math.Pi
	return yaw, pitch
}
