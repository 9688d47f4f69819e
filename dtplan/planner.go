// Package dtplan implements the content selection and planning stage:
// a pointer-network decoder that turns an encoded record set into an
// ordered sequence of record indices.
package dtplan

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"

	data2text "github.com/potamides/Data2Text"
)

func init() {
	var c ContentPlanner
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeContentPlanner)
}

// A ContentPlanner points at input records one decode step at a time.
//
// Each step advances a recurrent cell with the encoded record the
// previous step pointed at, then scores the new hidden state against
// every encoded record to obtain a log-probability distribution over
// record positions.
type ContentPlanner struct {
	Hidden int

	Encoder *data2text.RecordEncoder
	Cell    *data2text.LSTMCell
	Pointer *data2text.Linear
}

// DeserializeContentPlanner deserializes a ContentPlanner.
func DeserializeContentPlanner(d []byte) (*ContentPlanner, error) {
	var enc *data2text.RecordEncoder
	var cell *data2text.LSTMCell
	var pointer *anyvecsave.S
	if err := serializer.DeserializeAny(d, &enc, &cell, &pointer); err != nil {
		return nil, essentials.AddCtx("deserialize ContentPlanner", err)
	}
	return &ContentPlanner{
		Hidden:  enc.Hidden,
		Encoder: enc,
		Cell:    cell,
		Pointer: &data2text.Linear{
			InCount:  enc.Hidden,
			OutCount: enc.Hidden,
			Weights:  anydiff.NewVar(pointer.Vector),
		},
	}, nil
}

// NewContentPlanner creates a new, randomized ContentPlanner for a
// vocabulary of the given size.
func NewContentPlanner(c anyvec.Creator, vocabSize, hidden int) *ContentPlanner {
	return &ContentPlanner{
		Hidden:  hidden,
		Encoder: data2text.NewRecordEncoder(c, vocabSize, hidden),
		Cell:    data2text.NewLSTMCell(c, hidden, hidden),
		Pointer: data2text.NewLinear(c, hidden, hidden),
	}
}

// Creator returns the compute context the planner lives on.
func (c *ContentPlanner) Creator() anyvec.Creator {
	return c.Encoder.Embedding.Vector.Creator()
}

// Encode encodes a record set for subsequent decode steps.
func (c *ContentPlanner) Encode(records []data2text.Record) data2text.EncodedRecords {
	return c.Encoder.Encode(records)
}

// InitState produces the initial decoder state for a record set: the
// hidden vector is the mean of all encoded records and the cell
// vector is zero.
func (c *ContentPlanner) InitState(enc data2text.EncodedRecords) data2text.State {
	zero := anydiff.NewConst(c.Creator().MakeVector(c.Hidden))
	return data2text.State{
		Joined: anydiff.Concat(enc.Mean(), zero),
		Size:   c.Hidden,
	}
}

// Step runs one decode step with the record at the input index.
func (c *ContentPlanner) Step(enc data2text.EncodedRecords, s data2text.State,
	index int) *StepOut {
	next := c.Cell.Step(s, enc.At(index))
	packed := anydiff.Pool(next.Joined, func(joined anydiff.Res) anydiff.Res {
		hidden := anydiff.Slice(joined, 0, c.Hidden)
		hiddenMat := &anydiff.Matrix{Data: hidden, Rows: 1, Cols: c.Hidden}
		projMat := &anydiff.Matrix{
			Data: c.Pointer.Apply(enc.Res, enc.N),
			Rows: enc.N,
			Cols: c.Hidden,
		}
		logits := anydiff.MatMul(false, true, hiddenMat, projMat).Data
		logProbs := anydiff.LogSoftmax(logits, enc.N)
		return anydiff.Concat(logProbs, joined)
	})
	return &StepOut{packed: packed, records: enc.N, state: c.Hidden}
}

// Parameters returns the parameters of the planner.
func (c *ContentPlanner) Parameters() []*anydiff.Var {
	res := c.Encoder.Parameters()
	res = append(res, c.Cell.Parameters()...)
	res = append(res, c.Pointer.Parameters()...)
	return res
}

// SerializerType returns the unique ID used to serialize a
// ContentPlanner with the serializer package.
func (c *ContentPlanner) SerializerType() string {
	return "github.com/potamides/Data2Text/dtplan.ContentPlanner"
}

// Serialize serializes the planner.
func (c *ContentPlanner) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		c.Encoder,
		c.Cell,
		&anyvecsave.S{Vector: c.Pointer.Weights.Vector},
	)
}

// A StepOut is the packed result of a single decode step.
type StepOut struct {
	packed  anydiff.Res
	records int
	state   int
}

// LogProbs returns the log-probability distribution over record
// positions.
func (s *StepOut) LogProbs() anydiff.Res {
	return anydiff.Slice(s.packed, 0, s.records)
}

// Best returns the record position with the highest probability.
func (s *StepOut) Best() int {
	return anyvec.MaxIndex(s.LogProbs().Output())
}

// Next returns the decoder state for the following step.
func (s *StepOut) Next() data2text.State {
	return data2text.State{
		Joined: anydiff.Slice(s.packed, s.records, s.records+2*s.state),
		Size:   s.state,
	}
}

// Pool pools the packed result and calls f with a view backed by the
// pooled value.
// Training loops must consume each step through Pool so that the
// recurrent chain is back-propagated through only once.
func (s *StepOut) Pool(f func(s *StepOut) anydiff.Res) anydiff.Res {
	return anydiff.Pool(s.packed, func(packed anydiff.Res) anydiff.Res {
		return f(&StepOut{packed: packed, records: s.records, state: s.state})
	})
}
