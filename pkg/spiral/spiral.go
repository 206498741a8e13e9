// Package spiral implements the procedural spiral generator. A Generator is a
// pure function of its configuration and a node index: it holds no node
// state, performs no I/O and is safe for concurrent use.
//
// Layout: node i sits on a phyllotactic spiral with angular step 2π/ratio²,
// planar radius ratio·√i and height i·ratio/ZStepDivisor. The seed contributes
// a fixed phase rotation, so two seeds produce congruent spirals turned
// against each other. Distance from the origin never decreases with i.
//
// Connections: every node except the root links to its predecessor, and
// nodes at index ≥ ArchetypeCount also link back to the previous node with
// the same archetype (index - ArchetypeCount).
package spiral

import (
	"fmt"
	"hash/fnv"
	"iter"
	"math"
	"slices"
)

// ZStepDivisor scales the per-index rise along Z relative to the ratio.
const ZStepDivisor = 8.0

// maxPrealloc caps the up-front slice capacity of GenerateSequence. Larger
// counts grow by append.
const maxPrealloc = 4096

// Generator produces nodes for one immutable Config.
type Generator struct {
	cfg   Config
	phase float64
}

// New returns a generator built from DefaultConfig with opts applied.
// It never fails; an invalid configuration is reported by the generating
// methods.
func New(opts ...Option) *Generator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFromConfig(cfg)
}

// NewFromConfig returns a generator for cfg. An empty seed is replaced by
// DefaultSeed; other fields are taken as given.
func NewFromConfig(cfg Config) *Generator {
	if cfg.Seed == "" {
		cfg.Seed = DefaultSeed
	}
	return &Generator{
		cfg:   cfg,
		phase: seedPhase(cfg.Seed),
	}
}

// Config returns a copy of the generator's configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Validate reports whether the captured configuration is usable.
func (g *Generator) Validate() error {
	return g.cfg.Validate()
}

// Describe summarizes the active configuration for diagnostics.
func (g *Generator) Describe() string {
	return fmt.Sprintf("spiral generator: seed=%q depth=%d ratio=%g archetypes=%d",
		g.cfg.Seed, g.cfg.Depth, g.cfg.Ratio, ArchetypeCount)
}

// GenerateNode returns the node at index.
func (g *Generator) GenerateNode(index int) (Node, error) {
	if err := g.Validate(); err != nil {
		return Node{}, err
	}
	if index < 0 {
		return Node{}, fmt.Errorf("%w: %d is negative", ErrInvalidIndex, index)
	}
	return g.node(index), nil
}

// Sequence returns a lazy sequence of the nodes at indices 0..count-1.
// Each iteration recomputes nodes from scratch, so the sequence can be
// ranged over any number of times.
func (g *Generator) Sequence(count int) (iter.Seq[Node], error) {
	if err := g.checkCount(count); err != nil {
		return nil, err
	}
	return func(yield func(Node) bool) {
		for i := 0; i < count; i++ {
			if !yield(g.node(i)) {
				return
			}
		}
	}, nil
}

// GenerateSequence returns the nodes at indices 0..count-1 in order.
func (g *Generator) GenerateSequence(count int) ([]Node, error) {
	seq, err := g.Sequence(count)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, min(count, maxPrealloc))
	for n := range seq {
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Run returns one generation run: the nodes at indices 0..Depth-1.
func (g *Generator) Run() ([]Node, error) {
	return g.GenerateSequence(g.cfg.Depth)
}

func (g *Generator) checkCount(count int) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: count %d is negative", ErrInvalidConfig, count)
	}
	return nil
}

// node computes the node at a non-negative index. The config is assumed valid.
func (g *Generator) node(index int) Node {
	return Node{
		ID:          NodeID(index),
		Index:       index,
		Archetype:   ArchetypeOf(index),
		Position:    g.position(index),
		Connections: connections(index),
	}
}

func (g *Generator) position(index int) Vec3 {
	i := float64(index)
	r := g.cfg.Ratio
	theta := math.Mod(i*2*math.Pi/(r*r), 2*math.Pi) + g.phase
	planar := r * math.Sqrt(i)
	return Vec3{
		X: planar * math.Cos(theta),
		Y: planar * math.Sin(theta),
		Z: i * r / ZStepDivisor,
	}
}

func connections(index int) []int {
	conns := []int{}
	if index >= ArchetypeCount {
		conns = append(conns, index-ArchetypeCount)
	}
	if index >= 1 {
		conns = append(conns, index-1)
	}
	// ArchetypeCount > 1, so index-ArchetypeCount < index-1 and the slice
	// is already ascending without duplicates.
	return slices.Clip(conns)
}

// seedPhase maps a seed to an angle in [0, 2π).
func seedPhase(seed string) float64 {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return float64(h.Sum64()>>11) / (1 << 53) * 2 * math.Pi
}
