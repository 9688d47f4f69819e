package dtplan

import "testing"

func TestSampleSteps(t *testing.T) {
	s := &Sample{Plan: []int{2, 4, 5, 3, 0, 0}}
	steps := s.Steps()
	if len(steps) != 3 || steps[0] != 4 || steps[1] != 5 || steps[2] != 3 {
		t.Errorf("bad steps: %v", steps)
	}

	s = &Sample{Plan: []int{2, 4, 3}}
	steps = s.Steps()
	if len(steps) != 2 || steps[0] != 4 || steps[1] != 3 {
		t.Errorf("bad unpadded steps: %v", steps)
	}
}

func TestSampleValidation(t *testing.T) {
	vocab := testVocab()
	records := testRecords(vocab)

	good := &Sample{Records: records, Plan: []int{2, 4, 5, 3, 0}}
	if _, err := NewSampleList(vocab, []*Sample{good}); err != nil {
		t.Errorf("valid sample rejected: %s", err)
	}

	bad := []*Sample{
		{Records: nil, Plan: []int{2, 4, 3}},
		{Records: records, Plan: []int{4, 5, 3}},
		{Records: records, Plan: []int{2, 9, 3}},
		{Records: records, Plan: []int{2, 4, 0, 5}},
		{Records: records, Plan: []int{2, 0, 0}},
	}
	for i, s := range bad {
		if _, err := NewSampleList(vocab, []*Sample{s}); err == nil {
			t.Errorf("invalid sample %d accepted", i)
		}
	}
}
