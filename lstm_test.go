package data2text

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/serializer"
)

func TestLSTMCellStart(t *testing.T) {
	cell := NewLSTMCell(anyvec32.DefaultCreator{}, 3, 5)
	s := cell.Start(anyvec32.DefaultCreator{})
	if s.Size != 5 {
		t.Errorf("state size should be 5, but got %d", s.Size)
	}
	for i, x := range s.Joined.Output().Data().([]float32) {
		if x != 0 {
			t.Errorf("component %d: expected 0 but got %f", i, x)
		}
	}
}

func TestLSTMCellStep(t *testing.T) {
	cell := NewLSTMCell(anyvec32.DefaultCreator{}, 3, 5)
	in := anydiff.NewConst(anyvec32.MakeVectorData([]float32{1, -1, 0.5}))
	s := cell.Step(cell.Start(anyvec32.DefaultCreator{}), in)
	if s.Joined.Output().Len() != 10 {
		t.Errorf("joined length should be 10, but got %d", s.Joined.Output().Len())
	}
	if s.Hidden().Output().Len() != 5 || s.Cell().Output().Len() != 5 {
		t.Error("bad hidden or cell length")
	}
}

func TestLSTMCellProp(t *testing.T) {
	cell := NewLSTMCell(anyvec32.DefaultCreator{}, 2, 3)
	in := anydiff.NewVar(anyvec32.MakeVectorData([]float32{0.3, -0.7}))
	vars := append([]*anydiff.Var{in}, cell.Parameters()...)
	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			s := cell.Step(cell.Start(anyvec32.DefaultCreator{}), in)
			s = cell.Step(s, in)
			return s.Joined
		},
		V: vars,
	}
	checker.FullCheck(t)
}

func TestLSTMCellSerialize(t *testing.T) {
	cell := NewLSTMCell(anyvec32.DefaultCreator{}, 4, 6)
	data, err := serializer.SerializeAny(cell)
	if err != nil {
		t.Fatal(err)
	}
	var newCell *LSTMCell
	if err := serializer.DeserializeAny(data, &newCell); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cell, newCell) {
		t.Fatal("incorrect result")
	}
}

func TestStateMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	NewState(
		anydiff.NewConst(anyvec32.MakeVectorData([]float32{1, 2})),
		anydiff.NewConst(anyvec32.MakeVectorData([]float32{1, 2, 3})),
	)
}
