package dtsgd

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Clipper rescales gradients whose global L2 norm exceeds a
// threshold, leaving smaller gradients untouched.
// It chains in front of an optimizer transformer so that clipping
// happens before the optimizer sees the gradient.
type Clipper struct {
	// Threshold is the maximum allowed global norm.
	// If it is 0, a default of 7 is used.
	Threshold float64
}

// Transform clips the gradient in place.
func (c *Clipper) Transform(g anydiff.Grad) anydiff.Grad {
	var squared float64
	for _, vec := range g {
		norm := normFloat(vec)
		squared += norm * norm
	}
	norm := math.Sqrt(squared)
	threshold := c.Threshold
	if threshold == 0 {
		threshold = 7
	}
	if norm > threshold {
		g.Scale(creatorOf(g).MakeNumeric(threshold / norm))
	}
	return g
}

func normFloat(v anyvec.Vector) float64 {
	switch norm := anyvec.Norm(v).(type) {
	case float32:
		return float64(norm)
	case float64:
		return norm
	default:
		return 0
	}
}

func creatorOf(g anydiff.Grad) anyvec.Creator {
	for _, vec := range g {
		return vec.Creator()
	}
	panic("empty gradient")
}
