package dtgen

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anyvec"

	data2text "github.com/potamides/Data2Text"
)

// DefaultMaxLen is the generation length cap used when an Evaluator
// or GreedyDecode is given no explicit limit.
const DefaultMaxLen = 500

// GreedyDecode generates a word sequence for an encoded plan by
// always emitting the most probable word.
//
// At each step the copy gate decides whether the word is the value of
// the most attended plan position or the most probable vocabulary
// word.
// Decoding starts from the begin sentinel and stops at the end
// sentinel or after maxLen words, whichever comes first; hitting the
// cap truncates silently.
func (t *TextGenerator) GreedyDecode(planVecs []anyvec.Vector, copyValues []int,
	vocab *data2text.Vocab, maxLen int) []int {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	enc := t.Encode(planVecs)
	mem := enc.Memory()
	state := enc.InitState()
	input := vocab.Bos()

	var text []int
	for len(text) < maxLen {
		out := t.Step(mem, state, input)
		var word int
		if out.GateProb() > 0.5 {
			word = copyValues[out.BestCopy()]
		} else {
			word = out.BestWord()
		}
		if word == vocab.Eos() {
			break
		}
		text = append(text, word)
		state = out.Next()
		input = word
	}
	return text
}

// A Result aggregates evaluation statistics over one data split.
type Result struct {
	BLEU        float64
	MeanGoldLen float64
	MeanGenLen  float64
}

// An Evaluator runs greedy decoding over an evaluation split and
// scores the generated texts against the gold texts.
type Evaluator struct {
	Generator *TextGenerator
	Scorer    data2text.Scorer
	Vocab     *data2text.Vocab

	// MaxLen caps generation length; 0 means DefaultMaxLen.
	MaxLen int

	// Log, if non-nil, receives the aggregated results and one
	// decoded example.
	Log *logrus.Logger
}

// Evaluate decodes every sample and reports the BLEU score along with
// the mean gold and generated text lengths.
// The first sample's gold and generated text is logged verbatim as a
// qualitative probe.
func (e *Evaluator) Evaluate(samples SampleList, setName string) Result {
	if len(samples) == 0 {
		return Result{}
	}
	var goldLen, genLen int
	for i, sample := range samples {
		generated := e.Generator.GreedyDecode(sample.PlanVecs, sample.CopyValues,
			e.Vocab, e.MaxLen)
		gold := sample.Text[1 : len(sample.Text)-1]
		e.Scorer.Update(gold, generated)
		goldLen += len(gold)
		genLen += len(generated)
		if i == 0 && e.Log != nil {
			e.Log.WithFields(logrus.Fields{
				"gold":      e.detokenize(gold),
				"generated": e.detokenize(generated),
			}).Infof("%s sample", setName)
		}
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

func (e *Evaluator) detokenize(words []int) string {
	strs := make([]string, len(words))
	for i, w := range words {
		strs[i] = e.Vocab.Word(w)
	}
	return strings.Join(strs, " ")
}
