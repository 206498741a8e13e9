package graph

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/chazu/cathedral/pkg/spiral"
)

// ErrConflict is returned by AddNode when a different node already occupies
// the same index.
var ErrConflict = errors.New("graph: conflicting node")

// Layout is the set of nodes produced during one evaluation. Each evaluation
// builds a fresh Layout; callers should treat a finished Layout as read-only.
type Layout struct {
	Nodes   map[int]spiral.Node `json:"nodes"`
	IDIndex map[string]int      `json:"id_index"`
	Config  *spiral.Config      `json:"config,omitempty"` // config of the first generator that contributed
	Version uint64              `json:"version"`
}

// New creates an empty Layout.
func New() *Layout {
	return &Layout{
		Nodes:   make(map[int]spiral.Node),
		IDIndex: make(map[string]int),
	}
}

// FromNodes builds a Layout from a slice of nodes, typically a generation run.
func FromNodes(cfg spiral.Config, nodes []spiral.Node) (*Layout, error) {
	l := New()
	l.Config = &cfg
	for _, n := range nodes {
		if err := l.AddNode(n); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddNode inserts n. Adding a node identical to the one already stored at
// the same index is a no-op; adding a different one returns ErrConflict.
func (l *Layout) AddNode(n spiral.Node) error {
	if existing, ok := l.Nodes[n.Index]; ok {
		if existing.Equal(n) {
			return nil
		}
		return fmt.Errorf("%w: index %d already holds %s", ErrConflict, n.Index, existing.ID)
	}
	l.Nodes[n.Index] = n
	if n.ID != "" {
		l.IDIndex[n.ID] = n.Index
	}
	l.Version++
	return nil
}

// Get returns the node at index.
func (l *Layout) Get(index int) (spiral.Node, bool) {
	n, ok := l.Nodes[index]
	return n, ok
}

// Lookup returns the node with the given ID.
func (l *Layout) Lookup(id string) (spiral.Node, bool) {
	idx, ok := l.IDIndex[id]
	if !ok {
		return spiral.Node{}, false
	}
	return l.Get(idx)
}

// Indices returns the stored indices in ascending order.
func (l *Layout) Indices() []int {
	idx := make([]int, 0, len(l.Nodes))
	for i := range l.Nodes {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}

// Ordered returns all nodes in ascending index order.
func (l *Layout) Ordered() []spiral.Node {
	idx := l.Indices()
	nodes := make([]spiral.Node, 0, len(idx))
	for _, i := range idx {
		nodes = append(nodes, l.Nodes[i])
	}
	return nodes
}

// Roots returns the indices of nodes without back-references.
func (l *Layout) Roots() []int {
	var roots []int
	for _, i := range l.Indices() {
		if l.Nodes[i].IsRoot() {
			roots = append(roots, i)
		}
	}
	return roots
}

// Children returns the indices of nodes that connect back to index, in
// ascending order.
func (l *Layout) Children(index int) []int {
	var children []int
	for _, i := range l.Indices() {
		if slices.Contains(l.Nodes[i].Connections, index) {
			children = append(children, i)
		}
	}
	return children
}

// EdgeCount returns the number of connections whose target is present.
func (l *Layout) EdgeCount() int {
	count := 0
	for _, n := range l.Nodes {
		for _, c := range n.Connections {
			if _, ok := l.Nodes[c]; ok {
				count++
			}
		}
	}
	return count
}

// NodeCount returns the total number of nodes.
func (l *Layout) NodeCount() int {
	return len(l.Nodes)
}

// Fingerprint returns a hex SHA-256 digest over every node in index order,
// including exact float bits. Two layouts have the same fingerprint only if
// they hold bit-for-bit identical nodes.
func (l *Layout) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	putInt := func(v int) {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	putFloat := func(f float64) {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for _, n := range l.Ordered() {
		putInt(n.Index)
		putInt(len(n.ID))
		h.Write([]byte(n.ID))
		putInt(int(n.Archetype))
		putFloat(n.Position.X)
		putFloat(n.Position.Y)
		putFloat(n.Position.Z)
		putInt(len(n.Connections))
		for _, c := range n.Connections {
			putInt(c)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
