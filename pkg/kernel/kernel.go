// Package kernel defines the abstract geometry kernel interface used to
// turn layout nodes into renderable meshes. Implementations (sdfx) provide
// solid modeling behind this interface so the rest of the system never
// touches a concrete backend.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centered on the origin. Cylinders run along Z.
	Sphere(radius float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
