package dtgen

import (
	"testing"

	"github.com/unixpickle/anyvec"
)

func testSample(vecs []anyvec.Vector) *Sample {
	// "<s> lebron scored 22 </s>" with "lebron" and "22" copied from
	// plan positions 0 and 1.
	return &Sample{
		Text:        []int{2, 4, 5, 6, 3},
		Copied:      []bool{false, true, false, true, false},
		PlanVecs:    vecs,
		CopyIndices: []int{0, 1},
		CopyValues:  []int{4, 6},
	}
}

func TestGeneratorSampleValidation(t *testing.T) {
	vocab := testVocab()
	vecs := testPlanVecs(4, 2)

	if _, err := NewSampleList(vocab, []*Sample{testSample(vecs)}); err != nil {
		t.Errorf("valid sample rejected: %s", err)
	}

	bad := []*Sample{}

	s := testSample(vecs)
	s.PlanVecs = nil
	s.CopyValues = nil
	bad = append(bad, s)

	s = testSample(vecs)
	s.Text[0] = 4
	bad = append(bad, s)

	s = testSample(vecs)
	s.Text[len(s.Text)-1] = 4
	bad = append(bad, s)

	s = testSample(vecs)
	s.Copied = s.Copied[1:]
	bad = append(bad, s)

	s = testSample(vecs)
	s.CopyIndices = []int{0}
	bad = append(bad, s)

	s = testSample(vecs)
	s.CopyIndices = []int{0, 5}
	bad = append(bad, s)

	s = testSample(vecs)
	s.CopyValues = []int{4}
	bad = append(bad, s)

	for i, s := range bad {
		if _, err := NewSampleList(vocab, []*Sample{s}); err == nil {
			t.Errorf("invalid sample %d accepted", i)
		}
	}
}

func TestGeneratorSampleSteps(t *testing.T) {
	s := testSample(testPlanVecs(4, 2))
	if s.Steps() != 4 {
		t.Errorf("expected 4 steps but got %d", s.Steps())
	}
}
