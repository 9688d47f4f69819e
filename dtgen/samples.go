package dtgen

import (
	"fmt"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	data2text "github.com/potamides/Data2Text"
)

// A Sample pairs a gold text with the encoded plan it was written
// from.
type Sample struct {
	// Text is the gold word sequence, starting with the begin
	// sentinel and ending with the end sentinel.
	Text []int

	// Copied marks, per text position, whether the word was copied
	// from a record value rather than generated from the vocabulary.
	Copied []bool

	// PlanVecs holds the encoded record vector of every plan
	// position, in plan order.
	PlanVecs []anyvec.Vector

	// CopyIndices lists, for each copied word in text order, the plan
	// position it was copied from.
	CopyIndices []int

	// CopyValues holds the value word of every plan position, used to
	// resolve a predicted copy into a word.
	CopyValues []int
}

// Steps returns the number of positions the decoder is trained on.
func (s *Sample) Steps() int {
	return len(s.Text) - 1
}

// A SampleList is a list of validated generator samples.
type SampleList []*Sample

// NewSampleList validates samples built from gold plans and encoded
// records.
//
// Mismatched copy annotations or out-of-range plan positions are data
// errors here rather than arithmetic faults deep inside a training
// step.
func NewSampleList(vocab *data2text.Vocab, samples []*Sample) (SampleList, error) {
	for i, s := range samples {
		if err := validate(vocab, s); err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("generator sample %d", i), err)
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
	if len(s.PlanVecs) == 0 {
		return fmt.Errorf("empty plan")
	}
	if len(s.CopyValues) != len(s.PlanVecs) {
		return fmt.Errorf("have %d copy values for %d plan positions",
			len(s.CopyValues), len(s.PlanVecs))
	}
	if len(s.Text) < 2 || s.Text[0] != vocab.Bos() {
		return fmt.Errorf("text must start with the begin sentinel")
	}
	if s.Text[len(s.Text)-1] != vocab.Eos() {
		return fmt.Errorf("text must end with the end sentinel")
	}
	if len(s.Copied) != len(s.Text) {
		return fmt.Errorf("have %d copy marks for %d words",
			len(s.Copied), len(s.Text))
	}
	if s.Copied[0] {
		return fmt.Errorf("begin sentinel cannot be copied")
	}
	var copied int
	for _, c := range s.Copied {
		if c {
			copied++
		}
	}
	if copied != len(s.CopyIndices) {
		return fmt.Errorf("have %d copy indices for %d copied words",
			len(s.CopyIndices), copied)
	}
	for _, idx := range s.CopyIndices {
		if idx < 0 || idx >= len(s.PlanVecs) {
			return fmt.Errorf("copy index %d out of range [0, %d)", idx,
				len(s.PlanVecs))
		}
	}
	return nil
}
