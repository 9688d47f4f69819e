package dtsgd

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const (
	adagradDefaultAccumulator = 0.1
	adagradDefaultDamping     = 1e-10
)

// Adagrad implements the adaptive gradient technique: every parameter
// accumulates its squared gradients, and updates are scaled by the
// inverse square root of the accumulator.
type Adagrad struct {
	// InitialAccumulator is the value the per-parameter accumulator
	// starts out at.
	// If it is 0, a default of 0.1 is used.
	InitialAccumulator float64

	// Damping is added to the divisor to prevent divisions by zero.
	// This should be very small.
	// If it is 0, a default is used.
	Damping float64

	accum anydiff.Grad
}

// Transform transforms the gradient using Adagrad.
//
// This is not thread-safe.
func (a *Adagrad) Transform(realGrad anydiff.Grad) anydiff.Grad {
	if a.accum == nil {
		a.accum = anydiff.Grad{}
		for v, grad := range realGrad {
			acc := grad.Creator().MakeVector(grad.Len())
			acc.AddScalar(acc.Creator().MakeNumeric(a.initialAccumulator()))
			a.accum[v] = acc
		}
	}
	for v, grad := range realGrad {
		sq := grad.Copy()
		anyvec.Pow(sq, sq.Creator().MakeNumeric(2))
		a.accum[v].Add(sq)
	}
	for v, grad := range realGrad {
		div := a.accum[v].Copy()
		anyvec.Pow(div, div.Creator().MakeNumeric(0.5))
		div.AddScalar(div.Creator().MakeNumeric(a.damping()))
		grad.Div(div)
	}
	return realGrad
}

func (a *Adagrad) initialAccumulator() float64 {
	if a.InitialAccumulator == 0 {
		return adagradDefaultAccumulator
	} else {
		return a.InitialAccumulator
	}
}

func (a *Adagrad) damping() float64 {
	if a.Damping == 0 {
		return adagradDefaultDamping
	} else {
		return a.Damping
	}
}
