package data2text

import (
	"fmt"

	"github.com/unixpickle/anydiff"
)

// A Cost measures the amount of error from the output of a network.
//
// Just like Layers, a Cost function is batched.
// It takes a packed batch of desired outputs and actual outputs, and
// produces a batch of costs.
type Cost interface {
	Cost(desired, actual anydiff.Res, n int) anydiff.Res
}

// SigmoidCE combines a sigmoid output activation with cross-entropy
// loss.
// The copy-gate loss uses it with the raw gate logit as the actual
// output.
type SigmoidCE struct {
	// Average indicates whether or not the cross-entropy cost should
	// be an average rather than a sum.
	Average bool
}

// Cost is mathematically equivalent to applying the sigmoid to each
// component of actual, then finding the cross-entropy loss.
func (s SigmoidCE) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	minusOne := actual.Output().Creator().MakeNumeric(-1)
	costProducts := anydiff.Pool(desired, func(desired anydiff.Res) anydiff.Res {
		return anydiff.Pool(actual, func(actual anydiff.Res) anydiff.Res {
			logRegular := anydiff.LogSigmoid(actual)
			logComplement := anydiff.LogSigmoid(anydiff.Scale(actual, minusOne))
			return anydiff.Add(
				anydiff.Mul(desired, logRegular),
				anydiff.Mul(anydiff.Complement(desired), logComplement),
			)
		})
	})
	res := anydiff.SumCols(&anydiff.Matrix{
		Data: costProducts,
		Rows: n,
		Cols: actual.Output().Len() / n,
	})
	d := -1.0
	if s.Average {
		d /= float64(actual.Output().Len() / n)
	}
	return anydiff.Scale(res, res.Output().Creator().MakeNumeric(d))
}

// NLL computes the negative log likelihood of a target index under a
// log-probability distribution.
// It is used for both the pointer loss (gold record index under the
// attention distribution) and the word loss (gold word under the
// vocabulary distribution).
func NLL(logProbs anydiff.Res, target int) anydiff.Res {
	if target < 0 || target >= logProbs.Output().Len() {
		panic(fmt.Sprintf("target %d out of range [0, %d)", target,
			logProbs.Output().Len()))
	}
	picked := anydiff.Slice(logProbs, target, target+1)
	return anydiff.Scale(picked, picked.Output().Creator().MakeNumeric(-1))
}
