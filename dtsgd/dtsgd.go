// Package dtsgd provides the online training driver shared by the
// content planner and the text generator: per-example stochastic
// gradient descent with gradient transformations, teacher-forcing
// policies, progress logging, observers, and checkpoints.
package dtsgd

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
)

// A SampleList represents a list of training samples.
type SampleList interface {
	// Len returns the number of samples.
	Len() int

	// Swap swaps two samples.
	Swap(i, j int)
}

// A Gradienter computes the gradient for one training example of the
// sample list it was built around.
//
// The second return value is the cost reported for logging, already
// normalized by sequence length.
type Gradienter interface {
	Gradient(i int) (anydiff.Grad, float64)
}

// A Transformer transforms gradients.
//
// After its first call, a Transformer expects to see gradients of the
// same form (i.e. containing the same variables).
// A Transformer may modify its own input and return the same gradient
// as an output; its output is only guaranteed to be valid until the
// next time Transform is called.
type Transformer interface {
	Transform(g anydiff.Grad) anydiff.Grad
}

// A Chain applies a list of Transformers, one after another.
type Chain []Transformer

// Transform transforms the gradient with each Transformer in order.
func (c Chain) Transform(g anydiff.Grad) anydiff.Grad {
	for _, t := range c {
		g = t.Transform(g)
	}
	return g
}

// A Rater determines the learning rate given the epoch number.
// Fractional epochs are possible.
type Rater interface {
	Rate(epoch float64) float64
}

// A ConstRater is a Rater which always returns the same constant
// learning rate.
type ConstRater float64

// Rate returns float64(c).
func (c ConstRater) Rate(epoch float64) float64 {
	return float64(c)
}

// Shuffle shuffles a list of samples.
func Shuffle(s SampleList) {
	for i := 0; i < s.Len(); i++ {
		j := i + rand.Intn(s.Len()-i)
		s.Swap(i, j)
	}
}
