package dtgen

import (
	"github.com/unixpickle/anydiff"

	data2text "github.com/potamides/Data2Text"
	"github.com/potamides/Data2Text/dtsgd"
)

// A TrainDepth selects how far gradients flow through the decode
// chain.
type TrainDepth int

const (
	// FullSequence back-propagates through every decode step.
	FullSequence TrainDepth = iota

	// SingleStep trains on only the first decode step of each
	// example; gold positions past the first never contribute to the
	// loss or the gradient.
	SingleStep
)

// A Trainer computes per-example gradients for a TextGenerator.
// It implements dtsgd.Gradienter.
type Trainer struct {
	Generator *TextGenerator
	Samples   SampleList
	Forcing   *dtsgd.TeacherForcing
	Depth     TrainDepth

	// LastCost is the length-normalized cost of the last example.
	LastCost float64
}

// Gradient computes the gradient for the i-th sample.
//
// Each decode step contributes a copy-gate loss plus, depending on
// the gold copy mark, the negative log likelihood of the gold plan
// position under the copy distribution or of the gold word under the
// vocabulary distribution.
// Losses are summed for the gradient; the reported cost is divided by
// the number of steps once.
func (t *Trainer) Gradient(i int) (anydiff.Grad, float64) {
	sample := t.Samples[i]
	if sample.Steps() == 0 {
		panic("cannot train on a text with no positions")
	}
	forced := t.Forcing.Draw()

	grad := anydiff.NewGrad(t.Generator.Parameters()...)
	total := t.Generator.Encode(sample.PlanVecs).Pool(
		func(mem Memory, init data2text.State) anydiff.Res {
			if t.Depth == SingleStep {
				return t.firstStepLoss(mem, init, sample)
			}
			return t.stepLoss(mem, init, sample.Text[0], 1, 0, sample, forced)
		})

	c := total.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	total.Propagate(upstream, grad)

	t.LastCost = data2text.Scalar(total.Output()) / float64(sample.Steps())
	return grad, t.LastCost
}

func (t *Trainer) stepLoss(mem Memory, state data2text.State, input, step,
	copyPos int, sample *Sample, forced bool) anydiff.Res {
	out := t.Generator.Step(mem, state, input)
	return out.Pool(func(out *StepOut) anydiff.Res {
		loss := t.lossAt(out, sample, step, copyPos)
		if step == len(sample.Text)-1 {
			return loss
		}
		nextCopyPos := copyPos
		if sample.Copied[step] {
			nextCopyPos++
		}
		next := t.Forcing.Choose(forced, sample.Text[step], t.predict(out, sample))
		return anydiff.Add(loss,
			t.stepLoss(mem, out.Next(), next, step+1, nextCopyPos, sample, forced))
	})
}

func (t *Trainer) firstStepLoss(mem Memory, init data2text.State,
	sample *Sample) anydiff.Res {
	out := t.Generator.Step(mem, init, sample.Text[0])
	return out.Pool(func(out *StepOut) anydiff.Res {
		return t.lossAt(out, sample, 1, 0)
	})
}

// lossAt computes the loss of one decode step against text position
// step.
func (t *Trainer) lossAt(out *StepOut, sample *Sample, step, copyPos int) anydiff.Res {
	c := t.Generator.Creator()
	gateTarget := 0.0
	if sample.Copied[step] {
		gateTarget = 1
	}
	desired := anydiff.NewConst(c.MakeVectorData(
		c.MakeNumericList([]float64{gateTarget})))
	loss := data2text.SigmoidCE{}.Cost(desired, out.GateLogit(), 1)
	if sample.Copied[step] {
		return anydiff.Add(loss,
			data2text.NLL(out.CopyLogProbs(), sample.CopyIndices[copyPos]))
	}
	return anydiff.Add(loss, data2text.NLL(out.WordLogProbs(), sample.Text[step]))
}

// predict resolves a step's output into the word the model would emit.
func (t *Trainer) predict(out *StepOut, sample *Sample) int {
	if out.GateProb() > 0.5 {
		return sample.CopyValues[out.BestCopy()]
	}
	return out.BestWord()
}
