package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/cathedral/pkg/graph"
	"github.com/chazu/cathedral/pkg/spiral"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms layout script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: spiral-node -> spiral_node
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpGenerator wraps a *spiral.Generator so it can be passed between builtins.
type sexpGenerator struct {
	gen *spiral.Generator
}

func (g *sexpGenerator) SexpString(ps *zygo.PrintState) string {
	cfg := g.gen.Config()
	return fmt.Sprintf("(spiral :seed %q :depth %d :ratio %g)", cfg.Seed, cfg.Depth, cfg.Ratio)
}
func (g *sexpGenerator) Type() *zygo.RegisteredType { return nil }

// sexpNode wraps a spiral.Node returned from spiral-node and friends.
type sexpNode struct {
	node spiral.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q %s)", n.node.ID, n.node.Archetype)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an int from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toGenerator extracts the generator from a sexpGenerator.
func toGenerator(s zygo.Sexp) (*spiral.Generator, error) {
	if g, ok := s.(*sexpGenerator); ok {
		return g.gen, nil
	}
	return nil, fmt.Errorf("expected spiral generator, got %T (%s)", s, s.SexpString(nil))
}

// toNode extracts the node from a sexpNode.
func toNode(s zygo.Sexp) (spiral.Node, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.node, nil
	}
	return spiral.Node{}, fmt.Errorf("expected node, got %T (%s)", s, s.SexpString(nil))
}

// nodesToList records nodes in the layout and returns them as a Lisp list.
func nodesToList(l *graph.Layout, gen *spiral.Generator, nodes []spiral.Node) (zygo.Sexp, error) {
	items := make([]zygo.Sexp, 0, len(nodes))
	for _, n := range nodes {
		if err := record(l, gen, n); err != nil {
			return zygo.SexpNull, err
		}
		items = append(items, &sexpNode{node: n})
	}
	return zygo.MakeList(items), nil
}

// cancelCheckInterval is how many nodes collect gathers between context
// checks.
const cancelCheckInterval = 256

// collect gathers the first count nodes of gen, giving up once ctx ends.
func collect(ctx context.Context, gen *spiral.Generator, count int) ([]spiral.Node, error) {
	seq, err := gen.Sequence(count)
	if err != nil {
		return nil, err
	}
	var nodes []spiral.Node
	for n := range seq {
		if n.Index%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// record adds n to the layout and binds the layout to the first generator
// that contributes to it.
func record(l *graph.Layout, gen *spiral.Generator, n spiral.Node) error {
	if err := l.AddNode(n); err != nil {
		return err
	}
	if l.Config == nil {
		cfg := gen.Config()
		l.Config = &cfg
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all layout builtins into a zygomys environment.
// The builtins record every node they produce into l. Once ctx ends the
// generating builtins fail, which stops a runaway script at its next call.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(ctx context.Context, env *zygo.Zlisp, l *graph.Layout) {

	// -----------------------------------------------------------------------
	// (spiral :seed "demo" :depth 12 :ratio 1.4545)
	// -----------------------------------------------------------------------
	env.AddFunction("spiral", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var opts []spiral.Option

		if v, ok := pa.kw["seed"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("spiral: seed: %w", err)
			}
			opts = append(opts, spiral.WithSeed(s))
		}
		if v, ok := pa.kw["depth"]; ok {
			d, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("spiral: depth: %w", err)
			}
			opts = append(opts, spiral.WithDepth(d))
		}
		if v, ok := pa.kw["ratio"]; ok {
			r, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("spiral: ratio: %w", err)
			}
			opts = append(opts, spiral.WithRatio(r))
		}

		return &sexpGenerator{gen: spiral.New(opts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (describe gen)
	// -----------------------------------------------------------------------
	env.AddFunction("describe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("describe requires a generator argument")
		}
		gen, err := toGenerator(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("describe: %w", err)
		}
		return &zygo.SexpStr{S: gen.Describe()}, nil
	})

	// -----------------------------------------------------------------------
	// (spiral-node gen 13)
	// -----------------------------------------------------------------------
	env.AddFunction("spiral_node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("spiral-node requires a generator and an index")
		}
		gen, err := toGenerator(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-node: %w", err)
		}
		idx, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-node: index: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-node: %w", err)
		}
		n, err := gen.GenerateNode(idx)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-node: %w", err)
		}
		if err := record(l, gen, n); err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-node: %w", err)
		}
		return &sexpNode{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (spiral-sequence gen 12)
	// -----------------------------------------------------------------------
	env.AddFunction("spiral_sequence", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("spiral-sequence requires a generator and a count")
		}
		gen, err := toGenerator(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-sequence: %w", err)
		}
		count, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-sequence: count: %w", err)
		}
		nodes, err := collect(ctx, gen, count)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-sequence: %w", err)
		}
		list, err := nodesToList(l, gen, nodes)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-sequence: %w", err)
		}
		return list, nil
	})

	// -----------------------------------------------------------------------
	// (spiral-run gen)
	// -----------------------------------------------------------------------
	env.AddFunction("spiral_run", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("spiral-run requires a generator argument")
		}
		gen, err := toGenerator(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-run: %w", err)
		}
		nodes, err := collect(ctx, gen, gen.Config().Depth)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-run: %w", err)
		}
		list, err := nodesToList(l, gen, nodes)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spiral-run: %w", err)
		}
		return list, nil
	})

	// -----------------------------------------------------------------------
	// Node accessors: (node-id n) (node-index n) (node-archetype n)
	// (node-position n) (node-radius n) (node-connections n)
	// node-position yields the list (x y z).
	// -----------------------------------------------------------------------
	accessor := func(label string, get func(spiral.Node) zygo.Sexp) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a node argument", label)
			}
			n, err := toNode(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			return get(n), nil
		}
	}

	env.AddFunction("node_id", accessor("node-id", func(n spiral.Node) zygo.Sexp {
		return &zygo.SexpStr{S: n.ID}
	}))
	env.AddFunction("node_index", accessor("node-index", func(n spiral.Node) zygo.Sexp {
		return &zygo.SexpInt{Val: int64(n.Index)}
	}))
	env.AddFunction("node_archetype", accessor("node-archetype", func(n spiral.Node) zygo.Sexp {
		return &zygo.SexpStr{S: n.Archetype.String()}
	}))
	env.AddFunction("node_position", accessor("node-position", func(n spiral.Node) zygo.Sexp {
		return zygo.MakeList([]zygo.Sexp{
			&zygo.SexpFloat{Val: n.Position.X},
			&zygo.SexpFloat{Val: n.Position.Y},
			&zygo.SexpFloat{Val: n.Position.Z},
		})
	}))
	env.AddFunction("node_radius", accessor("node-radius", func(n spiral.Node) zygo.Sexp {
		return &zygo.SexpFloat{Val: n.Radius()}
	}))
	env.AddFunction("node_connections", accessor("node-connections", func(n spiral.Node) zygo.Sexp {
		items := make([]zygo.Sexp, 0, len(n.Connections))
		for _, c := range n.Connections {
			items = append(items, &zygo.SexpInt{Val: int64(c)})
		}
		return zygo.MakeList(items)
	}))
}
