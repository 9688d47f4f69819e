package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/unixpickle/essentials"

	data2text "github.com/potamides/Data2Text"
)

// An Example is one fully indexed training or evaluation example.
type Example struct {
	// Records is the record set, sentinel records first.
	Records []data2text.Record

	// Plan is the gold plan in record-set positions, framed by the
	// begin and end sentinels.
	Plan []int

	// Text is the gold word sequence, framed by the begin and end
	// sentinels.
	Text []int

	// Copied marks, per text position, whether the word was copied
	// from a record value.
	Copied []bool

	// CopyIndices lists, for each copied word in text order, the plan
	// position (0-based content step) it was copied from.
	CopyIndices []int
}

// A Dataset is a loaded and indexed corpus.
// It exposes the training split through the extractor contract of the
// root package.
type Dataset struct {
	Vocab *data2text.Vocab

	Train []*Example
	Valid []*Example
	Test  []*Example
}

// RecordsFor returns the record set of a training example.
func (d *Dataset) RecordsFor(example int) []data2text.Record {
	return d.Train[example].Records
}

// Vocabulary returns the shared word/record vocabulary.
func (d *Dataset) Vocabulary() *data2text.Vocab {
	return d.Vocab
}

type jsonExample struct {
	// Records holds one [entity, attribute, value, flag] word tuple
	// per record.
	Records [][]string `json:"records"`

	// Plan lists 0-based indices into Records, in content order.
	Plan []int `json:"plan"`

	Text        []string `json:"text"`
	Copied      []bool   `json:"copied"`
	CopyIndices []int    `json:"copy_indices"`
}

type jsonDataset struct {
	Words []string       `json:"words"`
	Train []*jsonExample `json:"train"`
	Valid []*jsonExample `json:"valid"`
	Test  []*jsonExample `json:"test"`
}

// LoadDataset reads a JSON corpus and converts every example into
// index space.
//
// Record sets are prefixed with one sentinel record per reserved
// token, so plan pointers and the begin/end sentinels share one index
// space; file plan indices are shifted accordingly.
func LoadDataset(path string) (ds *Dataset, err error) {
	defer essentials.AddCtxTo("load dataset", &err)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw jsonDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	vocab := data2text.NewVocab(raw.Words)
	ds = &Dataset{Vocab: vocab}
	for _, split := range []struct {
		name string
		in   []*jsonExample
		out  *[]*Example
	}{
		{"train", raw.Train, &ds.Train},
		{"valid", raw.Valid, &ds.Valid},
		{"test", raw.Test, &ds.Test},
	} {
		for i, ex := range split.in {
			conv, err := convertExample(vocab, ex)
			if err != nil {
				return nil, essentials.AddCtx(
					fmt.Sprintf("%s example %d", split.name, i), err)
			}
			*split.out = append(*split.out, conv)
		}
	}
	return ds, nil
}

func convertExample(vocab *data2text.Vocab, ex *jsonExample) (*Example, error) {
	records := []data2text.Record{
		data2text.SentinelRecord(vocab.Pad()),
		data2text.SentinelRecord(vocab.Unk()),
		data2text.SentinelRecord(vocab.Bos()),
		data2text.SentinelRecord(vocab.Eos()),
	}
	offset := len(records)
	for i, row := range ex.Records {
		if len(row) != data2text.RecordSlots {
			return nil, fmt.Errorf("record %d has %d slots, want %d", i,
				len(row), data2text.RecordSlots)
		}
		records = append(records, data2text.Record{
			Entity:    vocab.Index(row[0]),
			Attribute: vocab.Index(row[1]),
			Value:     vocab.Index(row[2]),
			Flag:      vocab.Index(row[3]),
		})
	}

	plan := []int{vocab.Bos()}
	for _, p := range ex.Plan {
		if p < 0 || p >= len(ex.Records) {
			return nil, fmt.Errorf("plan index %d out of range [0, %d)", p,
				len(ex.Records))
		}
		plan = append(plan, p+offset)
	}
	plan = append(plan, vocab.Eos())

	text := []int{vocab.Bos()}
	for _, w := range ex.Text {
		text = append(text, vocab.Index(w))
	}
	text = append(text, vocab.Eos())

	copied := append([]bool{false}, ex.Copied...)
	copied = append(copied, false)
	if len(copied) != len(text) {
		return nil, fmt.Errorf("have %d copy marks for %d words",
			len(ex.Copied), len(ex.Text))
	}

	return &Example{
		Records:     records,
		Plan:        plan,
		Text:        text,
		Copied:      copied,
		CopyIndices: append([]int{}, ex.CopyIndices...),
	}, nil
}

// ContentSteps returns the plan's record positions without the
// sentinel framing.
func (e *Example) ContentSteps() []int {
	return e.Plan[1 : len(e.Plan)-1]
}
