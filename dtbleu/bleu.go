// Package dtbleu computes corpus-level BLEU over index sequences,
// used to score generated content plans and texts against their gold
// counterparts.
package dtbleu

import (
	"math"
	"strconv"
	"strings"
)

// DefaultMaxOrder is the highest n-gram order scored when a Score is
// given no explicit limit.
const DefaultMaxOrder = 4

// A Score accumulates clipped n-gram statistics over a corpus.
// The zero value scores up to DefaultMaxOrder.
//
// It implements the Scorer interface of the root package.
type Score struct {
	// MaxOrder is the highest n-gram order; 0 means DefaultMaxOrder.
	MaxOrder int

	matches  []int
	possible []int
	goldLen  int
	genLen   int
}

// Update accumulates the statistics of one gold/generated sequence
// pair.
func (s *Score) Update(gold, generated []int) {
	order := s.maxOrder()
	if s.matches == nil {
		s.matches = make([]int, order)
		s.possible = make([]int, order)
	}
	s.goldLen += len(gold)
	s.genLen += len(generated)
	for n := 1; n <= order; n++ {
		goldCounts := ngramCounts(gold, n)
		for gram, count := range ngramCounts(generated, n) {
			if g := goldCounts[gram]; g < count {
				count = g
			}
			s.matches[n-1] += count
		}
		if possible := len(generated) - n + 1; possible > 0 {
			s.possible[n-1] += possible
		}
	}
}

// Calculate returns the corpus BLEU score accumulated so far: the
// geometric mean of the clipped n-gram precisions, multiplied by the
// brevity penalty.
//
// Orders with no possible n-grams are skipped; if any scored order
// has zero matches, the score is 0.
func (s *Score) Calculate() float64 {
	if s.genLen == 0 {
		return 0
	}
	var logSum float64
	var orders int
	for n := 0; n < s.maxOrder(); n++ {
		if s.possible[n] == 0 {
			continue
		}
		if s.matches[n] == 0 {
			return 0
		}
		logSum += math.Log(float64(s.matches[n]) / float64(s.possible[n]))
		orders++
	}
	if orders == 0 {
		return 0
	}
	precision := math.Exp(logSum / float64(orders))
	penalty := 1.0
	if s.genLen < s.goldLen {
		penalty = math.Exp(1 - float64(s.goldLen)/float64(s.genLen))
	}
	return precision * penalty
}

func (s *Score) maxOrder() int {
	if s.MaxOrder == 0 {
		return DefaultMaxOrder
	}
	return s.MaxOrder
}

func ngramCounts(seq []int, n int) map[string]int {
	counts := map[string]int{}
	for i := 0; i+n <= len(seq); i++ {
		var key strings.Builder
		for _, idx := range seq[i : i+n] {
			key.WriteString(strconv.Itoa(idx))
			key.WriteByte(' ')
		}
		counts[key.String()]++
	}
	return counts
}
