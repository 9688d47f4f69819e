package data2text

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r RecordEncoder
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeRecordEncoder)
}

// EncodedRecords holds the contextualized vector representations of
// one example's record set, one fixed-width row per record.
//
// It is an immutable value: retrieval by index gathers rows from the
// same underlying result without recomputation, and the value never
// outlives the forward pass over its example.
type EncodedRecords struct {
	// Res contains N rows of Hidden components each.
	Res anydiff.Res

	N      int
	Hidden int
}

// At returns the row for a single record.
func (e EncodedRecords) At(i int) anydiff.Res {
	if i < 0 || i >= e.N {
		panic(fmt.Sprintf("record index %d out of range [0, %d)", i, e.N))
	}
	return anydiff.Slice(e.Res, i*e.Hidden, (i+1)*e.Hidden)
}

// Gather returns the rows at the given indices, in order.
func (e EncodedRecords) Gather(indices []int) anydiff.Res {
	rows := make([]anydiff.Res, len(indices))
	for i, idx := range indices {
		rows[i] = e.At(idx)
	}
	return anydiff.Concat(rows...)
}

// Mean returns the mean of all rows, which initializes the content
// planner's hidden state.
func (e EncodedRecords) Mean() anydiff.Res {
	c := e.Res.Output().Creator()
	ones := c.MakeVector(e.N)
	ones.AddScalar(c.MakeNumeric(1 / float64(e.N)))
	onesMat := &anydiff.Matrix{Data: anydiff.NewConst(ones), Rows: 1, Cols: e.N}
	encMat := &anydiff.Matrix{Data: e.Res, Rows: e.N, Cols: e.Hidden}
	return anydiff.MatMul(false, false, onesMat, encMat).Data
}

// Pool pools the underlying result and calls f with a view of the
// encoded records backed by the pooled value.
// Decode loops that touch the records at every step should run inside
// f so the encoder is only back-propagated through once.
func (e EncodedRecords) Pool(f func(e EncodedRecords) anydiff.Res) anydiff.Res {
	return anydiff.Pool(e.Res, func(r anydiff.Res) anydiff.Res {
		return f(EncodedRecords{Res: r, N: e.N, Hidden: e.Hidden})
	})
}

// A RecordEncoder encodes a set of records into contextualized vector
// representations using a content selection gate: pairwise dot-product
// self-attention among the raw record vectors determines how much of
// each record survives into downstream use.
//
// It is purely feed-forward; records only influence each other through
// the attention-computed context.
type RecordEncoder struct {
	VocabSize int
	Hidden    int

	Embedding *anydiff.Var
	Reduce    *FC
	Project   *Linear
	Gate      *Linear
}

// DeserializeRecordEncoder deserializes a RecordEncoder.
func DeserializeRecordEncoder(d []byte) (*RecordEncoder, error) {
	var emb, project, gate *anyvecsave.S
	var reduce *FC
	if err := serializer.DeserializeAny(d, &emb, &reduce, &project, &gate); err != nil {
		return nil, essentials.AddCtx("deserialize RecordEncoder", err)
	}
	hidden := reduce.OutCount
	if emb.Vector.Len()%hidden != 0 {
		return nil, fmt.Errorf("deserialize RecordEncoder: embedding length %d "+
			"not divisible by hidden size %d", emb.Vector.Len(), hidden)
	}
	return &RecordEncoder{
		VocabSize: emb.Vector.Len() / hidden,
		Hidden:    hidden,
		Embedding: anydiff.NewVar(emb.Vector),
		Reduce:    reduce,
		Project: &Linear{
			InCount:  hidden,
			OutCount: hidden,
			Weights:  anydiff.NewVar(project.Vector),
		},
		Gate: &Linear{
			InCount:  2 * hidden,
			OutCount: hidden,
			Weights:  anydiff.NewVar(gate.Vector),
		},
	}, nil
}

// NewRecordEncoder creates a new, randomized RecordEncoder for a
// vocabulary of the given size.
func NewRecordEncoder(c anyvec.Creator, vocabSize, hidden int) *RecordEncoder {
	emb := anydiff.NewVar(c.MakeVector(vocabSize * hidden))
	anyvec.Rand(emb.Vector, anyvec.Normal, nil)
	return &RecordEncoder{
		VocabSize: vocabSize,
		Hidden:    hidden,
		Embedding: emb,
		Reduce:    NewFC(c, RecordSlots*hidden, hidden),
		Project:   NewLinear(c, hidden, hidden),
		Gate:      NewLinear(c, 2*hidden, hidden),
	}
}

// Encode encodes a record set.
//
// Each record's slots are embedded and concatenated, reduced to the
// hidden width through a LeakyReLU layer, attended against every other
// record, and gated by a sigmoid over the raw and context vectors.
// A record set of length 1 degenerates to attending only to itself.
func (r *RecordEncoder) Encode(records []Record) EncodedRecords {
	if len(records) == 0 {
		panic("cannot encode an empty record set")
	}
	n := len(records)
	h := r.Hidden

	embedded := make([]anydiff.Res, 0, n*RecordSlots)
	for _, rec := range records {
		for _, slot := range rec.Slots() {
			if slot < 0 || slot >= r.VocabSize {
				panic(fmt.Sprintf("slot index %d out of range [0, %d)", slot,
					r.VocabSize))
			}
			embedded = append(embedded, anydiff.Slice(r.Embedding, slot*h, (slot+1)*h))
		}
	}
	raw := Net{r.Reduce, LeakyReLU}.Apply(anydiff.Concat(embedded...), n)

	out := anydiff.Pool(raw, func(raw anydiff.Res) anydiff.Res {
		rawMat := &anydiff.Matrix{Data: raw, Rows: n, Cols: h}
		projMat := &anydiff.Matrix{Data: r.Project.Apply(raw, n), Rows: n, Cols: h}
		logits := anydiff.MatMul(false, true, rawMat, projMat).Data
		attention := anydiff.Exp(anydiff.LogSoftmax(logits, n))
		attMat := &anydiff.Matrix{Data: attention, Rows: n, Cols: n}
		context := anydiff.MatMul(false, false, attMat, rawMat).Data

		gateIn := anydiff.Pool(context, func(context anydiff.Res) anydiff.Res {
			pairs := make([]anydiff.Res, 0, 2*n)
			for i := 0; i < n; i++ {
				pairs = append(pairs,
					anydiff.Slice(raw, i*h, (i+1)*h),
					anydiff.Slice(context, i*h, (i+1)*h))
			}
			return anydiff.Concat(pairs...)
		})
		gate := anydiff.Sigmoid(r.Gate.Apply(gateIn, n))
		return anydiff.Mul(gate, raw)
	})

	return EncodedRecords{Res: out, N: n, Hidden: h}
}

// Parameters returns the parameters of the encoder.
func (r *RecordEncoder) Parameters() []*anydiff.Var {
	res := []*anydiff.Var{r.Embedding}
	res = append(res, r.Reduce.Parameters()...)
	res = append(res, r.Project.Parameters()...)
	res = append(res, r.Gate.Parameters()...)
	return res
}

// SerializerType returns the unique ID used to serialize a
// RecordEncoder with the serializer package.
func (r *RecordEncoder) SerializerType() string {
	return "github.com/potamides/Data2Text.RecordEncoder"
}

// Serialize serializes the encoder.
func (r *RecordEncoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: r.Embedding.Vector},
		r.Reduce,
		&anyvecsave.S{Vector: r.Project.Weights.Vector},
		&anyvecsave.S{Vector: r.Gate.Weights.Vector},
	)
}
