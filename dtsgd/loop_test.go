package dtsgd

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec32"
)

type testSamples int

func (t testSamples) Len() int {
	return int(t)
}

func (t testSamples) Swap(i, j int) {
}

// quadGradienter minimizes (x-2)^2.
type quadGradienter struct {
	v *anydiff.Var
}

func (q *quadGradienter) Gradient(i int) (anydiff.Grad, float64) {
	x := float64(q.v.Vector.Data().([]float32)[0])
	grad := anydiff.Grad{
		q.v: anyvec32.MakeVectorData([]float32{float32(2 * (x - 2))}),
	}
	return grad, (x - 2) * (x - 2)
}

func TestLoopConverges(t *testing.T) {
	v := anydiff.NewVar(anyvec32.MakeVectorData([]float32{10}))
	loop := &Loop{
		Samples:    testSamples(5),
		Gradienter: &quadGradienter{v: v},
		Rater:      ConstRater(0.1),
		Epochs:     50,
	}
	if err := loop.Run(make(chan struct{})); err != nil {
		t.Fatal(err)
	}
	x := float64(v.Vector.Data().([]float32)[0])
	if math.Abs(x-2) > 1e-2 {
		t.Errorf("bad solution: %f", x)
	}
}

type zeroGradienter struct {
	v     *anydiff.Var
	calls int
}

func (z *zeroGradienter) Gradient(i int) (anydiff.Grad, float64) {
	z.calls++
	zero := z.v.Vector.Creator().MakeVector(z.v.Vector.Len())
	return anydiff.Grad{z.v: zero}, 1.5
}

func TestLoopObservers(t *testing.T) {
	v := anydiff.NewVar(anyvec32.MakeVectorData([]float32{0}))
	g := &zeroGradienter{v: v}
	loop := &Loop{
		Samples:    testSamples(4),
		Gradienter: g,
		Rater:      ConstRater(1),
		Epochs:     3,
	}
	var iterations []int
	var epochs []int
	runs := 0
	loop.PostIteration(func(s Snapshot) {
		iterations = append(iterations, s.Iteration)
		if s.Cost != 1.5 {
			t.Errorf("expected cost 1.5 but got %f", s.Cost)
		}
	})
	loop.PostEpoch(func(s Snapshot) {
		epochs = append(epochs, s.Epoch)
	})
	loop.PostRun(func(s Snapshot) {
		runs++
		if s.Iteration != 12 {
			t.Errorf("expected 12 iterations but got %d", s.Iteration)
		}
	})
	if err := loop.Run(make(chan struct{})); err != nil {
		t.Fatal(err)
	}
	if g.calls != 12 {
		t.Errorf("expected 12 gradient calls but got %d", g.calls)
	}
	for i, iter := range iterations {
		if iter != i+1 {
			t.Fatalf("iteration %d reported as %d", i+1, iter)
		}
	}
	if len(epochs) != 3 || epochs[0] != 1 || epochs[2] != 3 {
		t.Errorf("bad epoch observations: %v", epochs)
	}
	if runs != 1 {
		t.Errorf("expected 1 run observation but got %d", runs)
	}
}

func TestLoopStop(t *testing.T) {
	v := anydiff.NewVar(anyvec32.MakeVectorData([]float32{0}))
	g := &zeroGradienter{v: v}
	loop := &Loop{
		Samples:    testSamples(4),
		Gradienter: g,
		Rater:      ConstRater(1),
		Epochs:     100,
	}
	stop := make(chan struct{})
	close(stop)
	if err := loop.Run(stop); err != nil {
		t.Fatal(err)
	}
	if g.calls != 0 {
		t.Errorf("expected 0 gradient calls but got %d", g.calls)
	}
}
