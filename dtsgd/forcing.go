package dtsgd

import "math/rand"

// TeacherForcing decides, per example, whether a decoder consumes the
// gold sequence or its own predictions as input during training.
//
// It is a plain policy over (gold, predicted) choices, independent of
// any decode loop, so it can be tested without running a forward pass.
type TeacherForcing struct {
	// Ratio is the probability of teacher forcing an example.
	// A ratio of 1 never consults the random source, so training with
	// full teacher forcing is deterministic.
	Ratio float64

	// Rand is the random source for the per-example draw.
	// If it is nil, the shared global source is used.
	Rand *rand.Rand
}

// Draw samples whether the next example is teacher forced.
func (t *TeacherForcing) Draw() bool {
	if t.Ratio >= 1 {
		return true
	} else if t.Ratio <= 0 {
		return false
	}
	if t.Rand != nil {
		return t.Rand.Float64() < t.Ratio
	}
	return rand.Float64() < t.Ratio
}

// Choose selects the decoder's next input index.
// When forced, the gold index is fed back; otherwise the model's own
// prediction is, with no gradient flowing through the choice.
func (t *TeacherForcing) Choose(forced bool, gold, predicted int) int {
	if forced {
		return gold
	}
	return predicted
}
