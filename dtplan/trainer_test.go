package dtplan

import (
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"

	"github.com/potamides/Data2Text/dtsgd"
)

func TestTrainerMemorizes(t *testing.T) {
	vocab := testVocab()
	samples, err := NewSampleList(vocab, []*Sample{
		{Records: testRecords(vocab), Plan: []int{2, 4, 5, 3, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	planner := NewContentPlanner(anyvec32.DefaultCreator{}, vocab.Len(), 8)
	trainer := &Trainer{
		Planner: planner,
		Samples: samples,
		Forcing: &dtsgd.TeacherForcing{Ratio: 1},
	}
	loop := &dtsgd.Loop{
		Samples:    samples,
		Gradienter: trainer,
		Transformer: dtsgd.Chain{
			&dtsgd.Clipper{},
			&dtsgd.Adagrad{},
		},
		Rater:  dtsgd.ConstRater(0.15),
		Epochs: 300,
	}

	trainer.Gradient(0)
	initial := trainer.LastCost
	if err := loop.Run(make(chan struct{})); err != nil {
		t.Fatal(err)
	}
	if trainer.LastCost >= initial {
		t.Errorf("cost should decrease: started at %f, ended at %f",
			initial, trainer.LastCost)
	}

	plan := planner.GreedyDecode(samples[0].Records, vocab, 10)
	expected := []int{4, 5}
	if len(plan) != len(expected) {
		t.Fatalf("expected plan %v but got %v", expected, plan)
	}
	for i, p := range expected {
		if plan[i] != p {
			t.Fatalf("expected plan %v but got %v", expected, plan)
		}
	}
}

func TestTrainerFreeRunning(t *testing.T) {
	vocab := testVocab()
	samples, err := NewSampleList(vocab, []*Sample{
		{Records: testRecords(vocab), Plan: []int{2, 5, 4, 3, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	planner := NewContentPlanner(anyvec32.DefaultCreator{}, vocab.Len(), 6)
	trainer := &Trainer{
		Planner: planner,
		Samples: samples,
		Forcing: &dtsgd.TeacherForcing{Ratio: 0},
	}
	grad, cost := trainer.Gradient(0)
	if cost <= 0 {
		t.Errorf("cost should be positive, but got %f", cost)
	}
	allZero := true
	for _, vec := range grad {
		for _, x := range vec.Data().([]float32) {
			if x != 0 {
				allZero = false
			}
		}
	}
	if allZero {
		t.Error("gradient should not be all zero")
	}
}
