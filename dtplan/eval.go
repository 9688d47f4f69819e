package dtplan

import (
	"github.com/sirupsen/logrus"

	data2text "github.com/potamides/Data2Text"
)

// GreedyDecode generates a content plan for a record set by always
// following the most probable pointer.
//
// Decoding starts from the begin sentinel and stops at the end
// sentinel or after maxLen pointers, whichever comes first.
// Every returned index is a valid position in the record set.
func (c *ContentPlanner) GreedyDecode(records []data2text.Record,
	vocab *data2text.Vocab, maxLen int) []int {
	enc := c.Encode(records)
	state := c.InitState(enc)
	input := vocab.Bos()

	var plan []int
	for len(plan) < maxLen {
		out := c.Step(enc, state, input)
		input = out.Best()
		if input == vocab.Eos() {
			break
		}
		plan = append(plan, input)
		state = out.Next()
	}
	return plan
}

// A Result aggregates evaluation statistics over one data split.
type Result struct {
	BLEU        float64
	MeanGoldLen float64
	MeanGenLen  float64
}

// An Evaluator runs greedy decoding over an evaluation split and
// scores the generated plans against the gold plans.
type Evaluator struct {
	Planner *ContentPlanner
	Scorer  data2text.Scorer
	Vocab   *data2text.Vocab

	// MaxLen caps decoded plan length for every sample.
	// If it is 0, the length of the longest plan in the evaluated
	// split is used, so short gold plans do not clip generation.
	MaxLen int

	// Log, if non-nil, receives the aggregated results.
	Log *logrus.Logger
}

// Evaluate decodes every sample with gradients disabled and reports
// the BLEU score along with the mean gold and generated plan lengths.
func (e *Evaluator) Evaluate(samples SampleList, setName string) Result {
	if len(samples) == 0 {
		return Result{}
	}
	maxLen := e.MaxLen
	if maxLen == 0 {
		maxLen = maxPlanLen(samples)
	}
	var goldLen, genLen int
	for _, sample := range samples {
		generated := e.Planner.GreedyDecode(sample.Records, e.Vocab, maxLen)
		gold := goldPlan(sample, e.Vocab)
		e.Scorer.Update(gold, generated)
		goldLen += len(gold)
		genLen += len(generated)
	}
	res := Result{
		BLEU:        e.Scorer.Calculate(),
		MeanGoldLen: float64(goldLen) / float64(len(samples)),
		MeanGenLen:  float64(genLen) / float64(len(samples)),
	}
	if e.Log != nil {
		e.Log.WithFields(logrus.Fields{
			"bleu":     res.BLEU,
			"gold_len": res.MeanGoldLen,
			"gen_len":  res.MeanGenLen,
		}).Infof("%s results", setName)
	}
	return res
}

// maxPlanLen returns the length of the longest plan in a split.
func maxPlanLen(samples SampleList) int {
	var max int
	for _, s := range samples {
		if len(s.Plan) > max {
			max = len(s.Plan)
		}
	}
	return max
}

// goldPlan strips the begin/end sentinels and padding from a gold
// plan.
func goldPlan(s *Sample, vocab *data2text.Vocab) []int {
	var res []int
	for _, ptr := range s.Plan[1:] {
		if ptr == 0 || ptr == vocab.Eos() {
			break
		}
		res = append(res, ptr)
	}
	return res
}
