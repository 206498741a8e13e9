package spiral

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ArchetypeCount is the size of the archetype set. It matches the 22 cards
// of a major arcana; every node's archetype is its index modulo this value.
const ArchetypeCount = 22

// Archetype is a categorical node label in [0, ArchetypeCount).
type Archetype int

// ArchetypeOf returns the archetype assigned to index.
func ArchetypeOf(index int) Archetype {
	return Archetype(index % ArchetypeCount)
}

func (a Archetype) String() string {
	return "A-" + strconv.Itoa(int(a))
}

// MarshalText encodes the archetype as its label, e.g. "A-3".
func (a Archetype) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a label produced by MarshalText.
func (a *Archetype) UnmarshalText(text []byte) error {
	s, ok := strings.CutPrefix(string(text), "A-")
	if !ok {
		return fmt.Errorf("spiral: archetype %q: missing A- prefix", text)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("spiral: archetype %q: %w", text, err)
	}
	if n < 0 || n >= ArchetypeCount {
		return fmt.Errorf("spiral: archetype %q out of range", text)
	}
	*a = Archetype(n)
	return nil
}

// Vec3 is a point in layout space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Length returns the Euclidean norm of v without intermediate overflow.
func (v Vec3) Length() float64 {
	return math.Hypot(math.Hypot(v.X, v.Y), v.Z)
}

// NodeID returns the identifier of the node at index.
func NodeID(index int) string {
	return "node-" + strconv.Itoa(index)
}

// Node is one generated element. Nodes are plain values; the generator keeps
// no reference to them.
type Node struct {
	ID          string    `json:"id" yaml:"id"`
	Index       int       `json:"index" yaml:"index"`
	Archetype   Archetype `json:"archetype" yaml:"archetype"`
	Position    Vec3      `json:"position" yaml:"position"`
	Connections []int     `json:"connections" yaml:"connections"` // ascending, each < Index
}

// Radius is the node's distance from the origin.
func (n Node) Radius() float64 {
	return n.Position.Length()
}

// IsRoot reports whether n has no back-references.
func (n Node) IsRoot() bool {
	return len(n.Connections) == 0
}

// Equal reports whether n and o are identical, including exact float bits.
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID &&
		n.Index == o.Index &&
		n.Archetype == o.Archetype &&
		math.Float64bits(n.Position.X) == math.Float64bits(o.Position.X) &&
		math.Float64bits(n.Position.Y) == math.Float64bits(o.Position.Y) &&
		math.Float64bits(n.Position.Z) == math.Float64bits(o.Position.Z) &&
		slices.Equal(n.Connections, o.Connections)
}
