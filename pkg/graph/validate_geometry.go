package graph

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Tier 2: geometric validation (warnings only)
// ---------------------------------------------------------------------------

// validateGeometry runs all Tier 2 checks.
func validateGeometry(l *Layout) []ValidationWarning {
	var warnings []ValidationWarning
	warnings = append(warnings, validateFinitePositions(l)...)
	warnings = append(warnings, validateMonotonicRadius(l)...)
	return warnings
}

// validateFinitePositions flags NaN or infinite coordinates.
func validateFinitePositions(l *Layout) []ValidationWarning {
	var warnings []ValidationWarning
	for _, n := range l.Ordered() {
		p := n.Position
		for _, c := range []float64{p.X, p.Y, p.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				warnings = append(warnings, ValidationWarning{
					Index:   n.Index,
					Message: fmt.Sprintf("non-finite position (%v, %v, %v)", p.X, p.Y, p.Z),
				})
				break
			}
		}
	}
	return warnings
}

// validateMonotonicRadius warns where distance from the origin drops between
// consecutive stored nodes. Later nodes must never sit closer to the origin.
func validateMonotonicRadius(l *Layout) []ValidationWarning {
	var warnings []ValidationWarning
	nodes := l.Ordered()
	for i := 1; i < len(nodes); i++ {
		prev, cur := nodes[i-1], nodes[i]
		if cur.Radius() < prev.Radius() {
			warnings = append(warnings, ValidationWarning{
				Index: cur.Index,
				Message: fmt.Sprintf("radius %.4f is below %.4f of %s",
					cur.Radius(), prev.Radius(), prev.ID),
			})
		}
	}
	return warnings
}
