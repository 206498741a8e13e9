package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/chazu/cathedral/internal/config"
	"github.com/chazu/cathedral/pkg/engine"
	"github.com/chazu/cathedral/pkg/graph"
	"github.com/chazu/cathedral/pkg/kernel"
	"github.com/chazu/cathedral/pkg/kernel/sdfx"
	"github.com/chazu/cathedral/pkg/spiral"
	"github.com/chazu/cathedral/pkg/tessellate"
)

// colorPalette assigns a color to each archetype, wrapping every eight.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// linkColor is used for strut meshes.
const linkColor = "#7F8C8D"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	kernel kernel.Kernel
	render config.Render
	log    *zap.Logger
}

// Vec3Data is the JSON form of a position.
type Vec3Data struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NodeData is the JSON-serializable node format sent to the frontend.
type NodeData struct {
	ID          string   `json:"id"`
	Index       int      `json:"index"`
	Archetype   string   `json:"archetype"`
	Position    Vec3Data `json:"position"`
	Radius      float64  `json:"radius"`
	Connections []int    `json:"connections"`
	Color       string   `json:"color"`
}

// NodeResult is returned by GenerateNode. Error is empty on success.
type NodeResult struct {
	Node  *NodeData `json:"node"`
	Error string    `json:"error"`
}

// SequenceResult is returned by GenerateSequence. Error is empty on success.
type SequenceResult struct {
	Nodes []NodeData `json:"nodes"`
	Error string     `json:"error"`
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Nodes    []NodeData      `json:"nodes"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App with an engine and the sdfx kernel. A nil logger
// discards output; nil settings use config.DefaultSettings.
func NewApp(log *zap.Logger, s *config.Settings) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if s == nil {
		s = config.DefaultSettings()
	}
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.NewWithCells(s.Render.MeshCells),
		render: s.Render,
		log:    log,
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.log.Info("app started", zap.Int("mesh_cells", a.render.MeshCells))
}

// Defaults returns the generator configuration the editor starts from.
func (a *App) Defaults() spiral.Config {
	return spiral.DefaultConfig()
}

// Describe returns the one-line summary of a generator built from cfg.
func (a *App) Describe(cfg spiral.Config) string {
	return spiral.NewFromConfig(cfg).Describe()
}

// GenerateNode returns the node at index for cfg.
func (a *App) GenerateNode(cfg spiral.Config, index int) NodeResult {
	n, err := spiral.NewFromConfig(cfg).GenerateNode(index)
	if err != nil {
		a.log.Warn("generate node failed", zap.Int("index", index), zap.Error(err))
		return NodeResult{Error: err.Error()}
	}
	nd := toNodeData(n)
	return NodeResult{Node: &nd}
}

// GenerateSequence returns the first count nodes for cfg.
func (a *App) GenerateSequence(cfg spiral.Config, count int) SequenceResult {
	result := SequenceResult{Nodes: []NodeData{}}
	nodes, err := spiral.NewFromConfig(cfg).GenerateSequence(count)
	if err != nil {
		a.log.Warn("generate sequence failed", zap.Int("count", count), zap.Error(err))
		result.Error = err.Error()
		return result
	}
	for _, n := range nodes {
		result.Nodes = append(result.Nodes, toNodeData(n))
	}
	return result
}

// Evaluate takes Lisp source and returns nodes, mesh data and errors.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Nodes:    []NodeData{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a layout.
	l, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluate fatal error", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the frontend format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		a.log.Debug("evaluate reported errors", zap.Int("count", len(evalErrs)))
		return result
	}

	// Step 3: Validate the layout. Errors stop rendering, warnings do not.
	vr := graph.ValidateAll(l)
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
		}
		return result
	}

	for _, n := range l.Ordered() {
		result.Nodes = append(result.Nodes, toNodeData(n))
	}

	// Step 4: Tessellate the layout into triangle meshes.
	meshes, err := tessellate.Tessellate(l, a.kernel, a.render.TessellateOptions())
	if err != nil {
		a.log.Error("tessellate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	// Step 5: Convert kernel meshes to the frontend MeshData format.
	for _, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    meshColor(l, m.PartName),
		})
	}

	a.log.Debug("evaluate done",
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("meshes", len(result.Meshes)),
		zap.String("fingerprint", l.Fingerprint()))
	return result
}

func toNodeData(n spiral.Node) NodeData {
	conns := n.Connections
	if conns == nil {
		conns = []int{}
	}
	return NodeData{
		ID:          n.ID,
		Index:       n.Index,
		Archetype:   n.Archetype.String(),
		Position:    Vec3Data{X: n.Position.X, Y: n.Position.Y, Z: n.Position.Z},
		Radius:      n.Radius(),
		Connections: conns,
		Color:       archetypeColor(n.Archetype),
	}
}

func archetypeColor(a spiral.Archetype) string {
	return colorPalette[int(a)%len(colorPalette)]
}

// meshColor colors markers by their node's archetype and struts uniformly.
func meshColor(l *graph.Layout, partName string) string {
	if n, ok := l.Lookup(partName); ok {
		return archetypeColor(n.Archetype)
	}
	return linkColor
}
