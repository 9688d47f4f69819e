package dtgen

import (
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/serializer"

	data2text "github.com/potamides/Data2Text"
)

func testVocab() *data2text.Vocab {
	return data2text.NewVocab([]string{"lebron", "scored", "22", "points"})
}

func testPlanVecs(hidden, k int) []anyvec.Vector {
	vecs := make([]anyvec.Vector, k)
	for i := range vecs {
		v := anyvec32.DefaultCreator{}.MakeVector(hidden)
		anyvec.Rand(v, anyvec.Normal, nil)
		vecs[i] = v
	}
	return vecs
}

func TestGeneratorEncode(t *testing.T) {
	vocab := testVocab()
	gen := NewTextGenerator(anyvec32.DefaultCreator{}, vocab.Len(), 5)
	enc := gen.Encode(testPlanVecs(5, 3))

	mem := enc.Memory()
	if mem.K != 3 || mem.Width != 10 {
		t.Fatalf("bad memory dimensions: %d by %d", mem.K, mem.Width)
	}
	if mem.Res.Output().Len() != 30 {
		t.Errorf("memory length should be 30, but got %d", mem.Res.Output().Len())
	}
	init := enc.InitState()
	if init.Size != 10 {
		t.Errorf("initial state size should be 10, but got %d", init.Size)
	}
	if init.Joined.Output().Len() != 20 {
		t.Errorf("joined length should be 20, but got %d",
			init.Joined.Output().Len())
	}
}

func TestGeneratorStep(t *testing.T) {
	vocab := testVocab()
	gen := NewTextGenerator(anyvec32.DefaultCreator{}, vocab.Len(), 4)
	enc := gen.Encode(testPlanVecs(4, 3))
	out := gen.Step(enc.Memory(), enc.InitState(), vocab.Bos())

	wordProbs := out.WordLogProbs().Output().Data().([]float32)
	if len(wordProbs) != vocab.Len() {
		t.Fatalf("expected %d word log probs but got %d", vocab.Len(),
			len(wordProbs))
	}
	var sum float64
	for _, lp := range wordProbs {
		sum += math.Exp(float64(lp))
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("word probabilities should sum to 1, but sum to %f", sum)
	}

	copyProbs := out.CopyLogProbs().Output().Data().([]float32)
	if len(copyProbs) != 3 {
		t.Fatalf("expected 3 copy log probs but got %d", len(copyProbs))
	}
	sum = 0
	for _, lp := range copyProbs {
		sum += math.Exp(float64(lp))
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("copy probabilities should sum to 1, but sum to %f", sum)
	}

	if p := out.GateProb(); p <= 0 || p >= 1 {
		t.Errorf("gate probability should be in (0, 1), but got %f", p)
	}
	if best := out.BestCopy(); best < 0 || best >= 3 {
		t.Errorf("best copy index %d out of range", best)
	}
	if out.Next().Size != 8 {
		t.Errorf("next state size should be 8, but got %d", out.Next().Size)
	}
}

func TestGeneratorProp(t *testing.T) {
	vocab := testVocab()
	gen := NewTextGenerator(anyvec32.DefaultCreator{}, vocab.Len(), 3)
	vecs := testPlanVecs(3, 2)
	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			enc := gen.Encode(vecs)
			out := gen.Step(enc.Memory(), enc.InitState(), vocab.Bos())
			return out.WordLogProbs()
		},
		V: gen.Parameters(),
	}
	checker.FullCheck(t)
}

func TestGeneratorSerialize(t *testing.T) {
	vocab := testVocab()
	gen := NewTextGenerator(anyvec32.DefaultCreator{}, vocab.Len(), 4)
	data, err := serializer.SerializeAny(gen)
	if err != nil {
		t.Fatal(err)
	}
	var newGen *TextGenerator
	if err := serializer.DeserializeAny(data, &newGen); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gen, newGen) {
		t.Fatal("incorrect result")
	}
}

func TestGreedyDecodeTruncation(t *testing.T) {
	vocab := testVocab()
	gen := NewTextGenerator(anyvec32.DefaultCreator{}, vocab.Len(), 4)
	copyValues := []int{4, 5, 6}
	text := gen.GreedyDecode(testPlanVecs(4, 3), copyValues, vocab, 5)
	if len(text) > 5 {
		t.Fatalf("text length should be at most 5, but got %d", len(text))
	}
	for _, w := range text {
		if w < 0 || w >= vocab.Len() {
			t.Errorf("word %d out of range", w)
		}
	}
}
