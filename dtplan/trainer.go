package dtplan

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"

	data2text "github.com/potamides/Data2Text"
	"github.com/potamides/Data2Text/dtsgd"
)

// A Trainer computes per-example gradients for a ContentPlanner.
// It implements dtsgd.Gradienter.
type Trainer struct {
	Planner *ContentPlanner
	Samples SampleList
	Forcing *dtsgd.TeacherForcing

	// LastCost is the length-normalized cost of the last example.
	LastCost float64
}

// Gradient computes the gradient for the i-th sample.
//
// The decode loop runs over the gold plan up to the first padding
// position, accumulating the negative log likelihood of each gold
// pointer.
// Losses are summed for the gradient; the reported cost is divided by
// the sequence length once.
func (t *Trainer) Gradient(i int) (anydiff.Grad, float64) {
	sample := t.Samples[i]
	golds := sample.Steps()
	if len(golds) == 0 {
		panic("cannot train on a plan with no positions")
	}
	forced := t.Forcing.Draw()

	grad := anydiff.NewGrad(t.Planner.Parameters()...)
	total := t.Planner.Encode(sample.Records).Pool(
		func(enc data2text.EncodedRecords) anydiff.Res {
			state := t.Planner.InitState(enc)
			return t.stepLoss(enc, state, sample.Plan[0], golds, forced)
		})

	c := total.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	total.Propagate(upstream, grad)

	t.LastCost = data2text.Scalar(total.Output()) / float64(len(golds))
	return grad, t.LastCost
}

func (t *Trainer) stepLoss(enc data2text.EncodedRecords, state data2text.State,
	input int, golds []int, forced bool) anydiff.Res {
	out := t.Planner.Step(enc, state, input)
	return out.Pool(func(out *StepOut) anydiff.Res {
		loss := data2text.NLL(out.LogProbs(), golds[0])
		if len(golds) == 1 {
			return loss
		}
		predicted := anyvec.MaxIndex(out.LogProbs().Output())
		next := t.Forcing.Choose(forced, golds[0], predicted)
		return anydiff.Add(loss, t.stepLoss(enc, out.Next(), next, golds[1:], forced))
	})
}
