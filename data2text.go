// Package data2text implements a two-stage pipeline that turns a set
// of entity/attribute/value records into natural-language text.
// A content planner (package dtplan) selects and orders the records
// worth talking about, and a text generator (package dtgen) renders
// the planned record sequence into words, copying record values
// verbatim where appropriate.
//
// This package holds the data model shared by both stages, the neural
// network primitives they are built from, and the record encoder that
// produces the contextualized record representations both stages
// attend over.
package data2text

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// RecordSlots is the number of categorical slots in a Record.
const RecordSlots = 4

// A Record is a fixed-arity tuple of categorical feature indices into
// a shared vocabulary, e.g. (PLAYER, PTS, "22", HOME) for a box-score
// cell.
type Record struct {
	Entity    int
	Attribute int
	Value     int
	Flag      int
}

// SentinelRecord produces a record with every slot set to the same
// word index.
// Record sets reserve their first positions for sentinel records so
// that plan pointers and sentinel indices share one index space.
func SentinelRecord(word int) Record {
	return Record{Entity: word, Attribute: word, Value: word, Flag: word}
}

// Slots returns the slot indices in their canonical order.
func (r Record) Slots() [RecordSlots]int {
	return [RecordSlots]int{r.Entity, r.Attribute, r.Value, r.Flag}
}

// Reserved vocabulary tokens.
// Pad always occupies index 0; a plan pointer of 0 is therefore
// padding, matching the reserved-index convention of the loaders.
const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
	BosToken = "<s>"
	EosToken = "</s>"
)

// A Vocab maps words to indices and back.
// The four reserved tokens occupy the first four indices in the order
// pad, unk, bos, eos.
type Vocab struct {
	words   []string
	indices map[string]int
}

// NewVocab creates a vocabulary from a list of words.
// The reserved tokens are prepended automatically and must not appear
// in the list.
func NewVocab(words []string) *Vocab {
	v := &Vocab{indices: map[string]int{}}
	for _, w := range []string{PadToken, UnkToken, BosToken, EosToken} {
		v.indices[w] = len(v.words)
		v.words = append(v.words, w)
	}
	for _, w := range words {
		if _, ok := v.indices[w]; ok {
			continue
		}
		v.indices[w] = len(v.words)
		v.words = append(v.words, w)
	}
	return v
}

// Len returns the vocabulary size, reserved tokens included.
func (v *Vocab) Len() int {
	return len(v.words)
}

// Index returns the index for a word, or the unknown index if the
// word is not in the vocabulary.
func (v *Vocab) Index(word string) int {
	if idx, ok := v.indices[word]; ok {
		return idx
	}
	return v.Unk()
}

// Word returns the word at an index.
func (v *Vocab) Word(idx int) string {
	return v.words[idx]
}

// Pad returns the padding index, which is always 0.
func (v *Vocab) Pad() int { return 0 }

// Unk returns the unknown-word index.
func (v *Vocab) Unk() int { return 1 }

// Bos returns the begin-of-sequence index.
func (v *Vocab) Bos() int { return 2 }

// Eos returns the end-of-sequence index.
func (v *Vocab) Eos() int { return 3 }

// An Extractor converts raw upstream data (e.g. box-score logs) into
// record sets.
// It is an external collaborator; this module only consumes its
// output.
type Extractor interface {
	// RecordsFor returns the record set for an example.
	// The first positions hold sentinel records.
	RecordsFor(example int) []Record

	// Vocabulary returns the shared word/record vocabulary.
	Vocabulary() *Vocab
}

// A Scorer accumulates similarity scores between gold and generated
// index sequences across an evaluation pass.
type Scorer interface {
	Update(gold, generated []int)
	Calculate() float64
}

// Scalar reads a single-component vector as a float64.
func Scalar(v anyvec.Vector) float64 {
	if v.Len() != 1 {
		panic(fmt.Sprintf("vector length should be 1, but got %d", v.Len()))
	}
	switch val := anyvec.Sum(v).(type) {
	case float32:
		return float64(val)
	case float64:
		return val
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", val))
	}
}

// CheckCreator panics with a diagnostic if two vectors live on
// different compute contexts.
// Tensors must be moved to one consistent creator before a forward
// pass; silently mixing contexts is never allowed.
func CheckCreator(a, b anyvec.Vector) {
	if a.Creator() != b.Creator() {
		panic(fmt.Sprintf("mismatching creators: %T and %T", a.Creator(), b.Creator()))
	}
}
