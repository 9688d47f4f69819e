package dtplan

import (
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"

	"github.com/potamides/Data2Text/dtbleu"
)

func TestEvaluator(t *testing.T) {
	vocab := testVocab()
	samples, err := NewSampleList(vocab, []*Sample{
		{Records: testRecords(vocab), Plan: []int{2, 4, 5, 3, 0}},
		{Records: testRecords(vocab), Plan: []int{2, 5, 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	eval := &Evaluator{
		Planner: NewContentPlanner(anyvec32.DefaultCreator{}, vocab.Len(), 4),
		Scorer:  &dtbleu.Score{},
		Vocab:   vocab,
	}
	res := eval.Evaluate(samples, "test")
	if res.BLEU < 0 || res.BLEU > 1 {
		t.Errorf("BLEU should be in [0, 1], but got %f", res.BLEU)
	}
	if res.MeanGoldLen != 1.5 {
		t.Errorf("mean gold length should be 1.5, but got %f", res.MeanGoldLen)
	}
	if res.MeanGenLen < 0 {
		t.Errorf("bad mean generated length %f", res.MeanGenLen)
	}
}

func TestEvaluatorDecodeCap(t *testing.T) {
	vocab := testVocab()
	samples, err := NewSampleList(vocab, []*Sample{
		{Records: testRecords(vocab), Plan: []int{2, 4, 5, 3, 0}},
		{Records: testRecords(vocab), Plan: []int{2, 5, 3}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The default cap comes from the longest plan in the split, so a
	// short gold plan does not clip its own generation.
	if l := maxPlanLen(samples); l != 5 {
		t.Errorf("expected cap 5 but got %d", l)
	}

	eval := &Evaluator{
		Planner: NewContentPlanner(anyvec32.DefaultCreator{}, vocab.Len(), 4),
		Scorer:  &dtbleu.Score{},
		Vocab:   vocab,
		MaxLen:  2,
	}
	res := eval.Evaluate(samples, "test")
	if res.MeanGenLen > 2 {
		t.Errorf("mean generated length should be capped at 2, but got %f",
			res.MeanGenLen)
	}
}
