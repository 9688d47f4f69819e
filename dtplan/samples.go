package dtplan

import (
	"fmt"

	"github.com/unixpickle/essentials"

	data2text "github.com/potamides/Data2Text"
)

// A Sample pairs a record set with its gold content plan.
type Sample struct {
	// Records is the example's record set, sentinel records first.
	Records []data2text.Record

	// Plan is the gold sequence of record positions, starting with
	// the begin sentinel, ending with the end sentinel, and padded
	// with the padding position 0.
	Plan []int
}

// Steps returns the gold pointers the decoder is trained on: every
// plan position after the leading begin sentinel up to (exclusive of)
// the first padding position.
func (s *Sample) Steps() []int {
	for i := 1; i < len(s.Plan); i++ {
		if s.Plan[i] == 0 {
			return s.Plan[1:i]
		}
	}
	return s.Plan[1:]
}

// A SampleList is a list of validated planner samples.
type SampleList []*Sample

// NewSampleList validates samples from a dataset loader.
//
// A sample with no non-padding plan position beyond the begin
// sentinel, or with a pointer outside its record set, is a data error
// here rather than an arithmetic fault deep inside a training step.
func NewSampleList(vocab *data2text.Vocab, samples []*Sample) (SampleList, error) {
	for i, s := range samples {
		if err := validate(vocab, s); err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("planner sample %d", i), err)
		}
	}
	return SampleList(samples), nil
}

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func validate(vocab *data2text.Vocab, s *Sample) error {
	if len(s.Records) == 0 {
		return fmt.Errorf("empty record set")
	}
	if len(s.Plan) == 0 || s.Plan[0] != vocab.Bos() {
		return fmt.Errorf("plan must start with the begin sentinel")
	}
	padded := false
	for _, ptr := range s.Plan {
		if ptr < 0 || ptr >= len(s.Records) {
			return fmt.Errorf("pointer %d out of range [0, %d)", ptr, len(s.Records))
		}
		if ptr == 0 {
			padded = true
		} else if padded {
			return fmt.Errorf("non-padding pointer %d after padding", ptr)
		}
	}
	if len(s.Steps()) == 0 {
		return fmt.Errorf("plan has no positions to train on")
	}
	return nil
}
