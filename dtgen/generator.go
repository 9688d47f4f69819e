// Package dtgen implements the text generation stage: a
// copy-mechanism decoder that renders an ordered sequence of planned
// record vectors into words, attending over a bidirectional encoding
// of the plan.
package dtgen

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"

	data2text "github.com/potamides/Data2Text"
)

func init() {
	var t TextGenerator
	serializer.RegisterTypedDeserializer(t.SerializerType(), DeserializeTextGenerator)
}

// A TextGenerator turns a sequence of planned record vectors into a
// word sequence.
//
// The plan vectors are run through a bidirectional recurrent encoder
// whose per-step outputs form an attention memory.
// A decoder then emits one word per step: attention over the memory
// yields both a context vector and a copy distribution over plan
// positions, and a sigmoid gate decides whether the step copies a
// record value or produces a vocabulary word.
type TextGenerator struct {
	WordVocab int
	Hidden    int

	Embedding *anydiff.Var
	Forward   *data2text.LSTMCell
	Backward  *data2text.LSTMCell
	Decoder   *data2text.LSTMCell

	Attend   *data2text.Linear
	Mix      *data2text.FC
	Vocab    *data2text.FC
	CopyGate *data2text.FC
}

// DeserializeTextGenerator deserializes a TextGenerator.
func DeserializeTextGenerator(d []byte) (*TextGenerator, error) {
	var emb, attend *anyvecsave.S
	var fw, bw, dec *data2text.LSTMCell
	var mix, vocab, gate *data2text.FC
	err := serializer.DeserializeAny(d, &emb, &fw, &bw, &dec, &attend, &mix,
		&vocab, &gate)
	if err != nil {
		return nil, essentials.AddCtx("deserialize TextGenerator", err)
	}
	hidden := fw.StateCount
	if emb.Vector.Len()%hidden != 0 {
		return nil, fmt.Errorf("deserialize TextGenerator: embedding length %d "+
			"not divisible by hidden size %d", emb.Vector.Len(), hidden)
	}
	return &TextGenerator{
		WordVocab: emb.Vector.Len() / hidden,
		Hidden:    hidden,
		Embedding: anydiff.NewVar(emb.Vector),
		Forward:   fw,
		Backward:  bw,
		Decoder:   dec,
		Attend: &data2text.Linear{
			InCount:  2 * hidden,
			OutCount: 2 * hidden,
			Weights:  anydiff.NewVar(attend.Vector),
		},
		Mix:      mix,
		Vocab:    vocab,
		CopyGate: gate,
	}, nil
}

// NewTextGenerator creates a new, randomized TextGenerator for a word
// vocabulary of the given size.
//
// The decoder state is twice the hidden size, matching the width of
// the bidirectional memory rows it attends over.
func NewTextGenerator(c anyvec.Creator, wordVocab, hidden int) *TextGenerator {
	emb := anydiff.NewVar(c.MakeVector(wordVocab * hidden))
	anyvec.Rand(emb.Vector, anyvec.Normal, nil)
	return &TextGenerator{
		WordVocab: wordVocab,
		Hidden:    hidden,
		Embedding: emb,
		Forward:   data2text.NewLSTMCell(c, hidden, hidden),
		Backward:  data2text.NewLSTMCell(c, hidden, hidden),
		Decoder:   data2text.NewLSTMCell(c, hidden, 2*hidden),
		Attend:    data2text.NewLinear(c, 2*hidden, 2*hidden),
		Mix:       data2text.NewFC(c, 4*hidden, 2*hidden),
		Vocab:     data2text.NewFC(c, 2*hidden, wordVocab),
		CopyGate:  data2text.NewFC(c, 2*hidden, 1),
	}
}

// Creator returns the compute context the generator lives on.
func (t *TextGenerator) Creator() anyvec.Creator {
	return t.Embedding.Vector.Creator()
}

// Memory is the attention memory over an encoded plan: one row of
// forward and backward encoder outputs per plan position.
type Memory struct {
	// Res contains K rows of Width components each.
	Res anydiff.Res

	K     int
	Width int
}

// An EncodedPlan packs the attention memory and the decoder's initial
// state produced by encoding one plan.
type EncodedPlan struct {
	packed anydiff.Res
	k      int
	hidden int
}

// Encode runs the bidirectional encoder over a sequence of plan
// vectors.
//
// The vectors are consumed as constants; no gradient flows back into
// whatever produced them.
func (t *TextGenerator) Encode(planVecs []anyvec.Vector) EncodedPlan {
	if len(planVecs) == 0 {
		panic("cannot encode an empty plan")
	}
	c := t.Creator()
	h := t.Hidden
	k := len(planVecs)

	inputs := make([]anydiff.Res, k)
	reversed := make([]anydiff.Res, k)
	for i, v := range planVecs {
		if v.Len() != h {
			panic(fmt.Sprintf("plan vector length should be %d, but got %d", h,
				v.Len()))
		}
		data2text.CheckCreator(v, t.Embedding.Vector)
		in := anydiff.NewConst(v)
		inputs[i] = in
		reversed[k-1-i] = in
	}

	fwPacked := runDirection(t.Forward, inputs, t.Forward.Start(c))
	bwPacked := runDirection(t.Backward, reversed, t.Backward.Start(c))

	packed := anydiff.Pool(fwPacked, func(fw anydiff.Res) anydiff.Res {
		return anydiff.Pool(bwPacked, func(bw anydiff.Res) anydiff.Res {
			rows := make([]anydiff.Res, 0, k+1)
			for i := 0; i < k; i++ {
				rows = append(rows, anydiff.Concat(
					anydiff.Slice(fw, i*h, (i+1)*h),
					anydiff.Slice(bw, (k-1-i)*h, (k-i)*h),
				))
			}
			fwHidden := anydiff.Slice(fw, k*h, (k+1)*h)
			fwCell := anydiff.Slice(fw, (k+1)*h, (k+2)*h)
			bwHidden := anydiff.Slice(bw, k*h, (k+1)*h)
			bwCell := anydiff.Slice(bw, (k+1)*h, (k+2)*h)
			rows = append(rows, anydiff.Concat(fwHidden, bwHidden, fwCell, bwCell))
			return anydiff.Concat(rows...)
		})
	})
	return EncodedPlan{packed: packed, k: k, hidden: h}
}

// runDirection steps a cell over the inputs and returns the hidden
// vector of every step followed by the final joined state.
// Each step's state is pooled so back-propagation through the chain
// stays linear in the sequence length.
func runDirection(cell *data2text.LSTMCell, inputs []anydiff.Res,
	s data2text.State) anydiff.Res {
	next := cell.Step(s, inputs[0])
	return anydiff.Pool(next.Joined, func(joined anydiff.Res) anydiff.Res {
		hidden := anydiff.Slice(joined, 0, next.Size)
		if len(inputs) == 1 {
			return anydiff.Concat(hidden, joined)
		}
		rest := runDirection(cell, inputs[1:],
			data2text.State{Joined: joined, Size: next.Size})
		return anydiff.Concat(hidden, rest)
	})
}

// Memory returns the attention memory.
func (e EncodedPlan) Memory() Memory {
	return Memory{
		Res:   anydiff.Slice(e.packed, 0, e.k*2*e.hidden),
		K:     e.k,
		Width: 2 * e.hidden,
	}
}

// InitState returns the decoder's initial state: the concatenated
// final hidden vectors of both directions, and likewise for the cell
// vectors.
func (e EncodedPlan) InitState() data2text.State {
	return data2text.State{
		Joined: anydiff.Slice(e.packed, e.k*2*e.hidden, (e.k+2)*2*e.hidden),
		Size:   2 * e.hidden,
	}
}

// Pool pools the encoding and calls f with the memory and initial
// state backed by the pooled value.
// Decode loops that touch the memory at every step should run inside
// f so the encoder is only back-propagated through once.
func (e EncodedPlan) Pool(f func(mem Memory, init data2text.State) anydiff.Res) anydiff.Res {
	return anydiff.Pool(e.packed, func(packed anydiff.Res) anydiff.Res {
		pooled := EncodedPlan{packed: packed, k: e.k, hidden: e.hidden}
		return f(pooled.Memory(), pooled.InitState())
	})
}

// Step runs one decode step with the given input word.
//
// The attention distribution over memory rows doubles as the copy
// distribution over plan positions, and the tanh-mixed combination of
// the decoder output and the attention context becomes the hidden
// vector of the next state.
func (t *TextGenerator) Step(mem Memory, s data2text.State, word int) *StepOut {
	if word < 0 || word >= t.WordVocab {
		panic(fmt.Sprintf("word index %d out of range [0, %d)", word, t.WordVocab))
	}
	h := t.Hidden
	emb := anydiff.Slice(t.Embedding, word*h, (word+1)*h)
	next := t.Decoder.Step(s, emb)
	packed := anydiff.Pool(next.Joined, func(joined anydiff.Res) anydiff.Res {
		hidden := anydiff.Slice(joined, 0, 2*h)
		cell := anydiff.Slice(joined, 2*h, 4*h)
		hiddenMat := &anydiff.Matrix{Data: hidden, Rows: 1, Cols: 2 * h}
		projMat := &anydiff.Matrix{
			Data: t.Attend.Apply(mem.Res, mem.K),
			Rows: mem.K,
			Cols: 2 * h,
		}
		logits := anydiff.MatMul(false, true, hiddenMat, projMat).Data
		copyLogProbs := anydiff.LogSoftmax(logits, mem.K)
		return anydiff.Pool(copyLogProbs, func(copyLogProbs anydiff.Res) anydiff.Res {
			attMat := &anydiff.Matrix{
				Data: anydiff.Exp(copyLogProbs),
				Rows: 1,
				Cols: mem.K,
			}
			memMat := &anydiff.Matrix{Data: mem.Res, Rows: mem.K, Cols: 2 * h}
			context := anydiff.MatMul(false, false, attMat, memMat).Data
			mixed := anydiff.Tanh(t.Mix.Apply(anydiff.Concat(hidden, context), 1))
			return anydiff.Pool(mixed, func(mixed anydiff.Res) anydiff.Res {
				wordLogProbs := anydiff.LogSoftmax(t.Vocab.Apply(mixed, 1),
					t.WordVocab)
				gateLogit := t.CopyGate.Apply(mixed, 1)
				return anydiff.Concat(wordLogProbs, copyLogProbs, gateLogit,
					mixed, cell)
			})
		})
	})
	return &StepOut{packed: packed, words: t.WordVocab, positions: mem.K, state: 2 * h}
}

// Parameters returns the parameters of the generator.
func (t *TextGenerator) Parameters() []*anydiff.Var {
	res := []*anydiff.Var{t.Embedding}
	for _, p := range []data2text.Parameterizer{t.Forward, t.Backward, t.Decoder,
		t.Attend, t.Mix, t.Vocab, t.CopyGate} {
		res = append(res, p.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize a
// TextGenerator with the serializer package.
func (t *TextGenerator) SerializerType() string {
	return "github.com/potamides/Data2Text/dtgen.TextGenerator"
}

// Serialize serializes the generator.
func (t *TextGenerator) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: t.Embedding.Vector},
		t.Forward,
		t.Backward,
		t.Decoder,
		&anyvecsave.S{Vector: t.Attend.Weights.Vector},
		t.Mix,
		t.Vocab,
		t.CopyGate,
	)
}

// A StepOut is the packed result of a single decode step.
type StepOut struct {
	packed    anydiff.Res
	words     int
	positions int
	state     int
}

// WordLogProbs returns the log-probability distribution over
// vocabulary words.
func (s *StepOut) WordLogProbs() anydiff.Res {
	return anydiff.Slice(s.packed, 0, s.words)
}

// CopyLogProbs returns the log-probability distribution over plan
// positions.
func (s *StepOut) CopyLogProbs() anydiff.Res {
	return anydiff.Slice(s.packed, s.words, s.words+s.positions)
}

// GateLogit returns the raw copy-gate logit.
func (s *StepOut) GateLogit() anydiff.Res {
	return anydiff.Slice(s.packed, s.words+s.positions, s.words+s.positions+1)
}

// GateProb returns the probability that the step copies a record
// value.
func (s *StepOut) GateProb() float64 {
	logit := data2text.Scalar(s.GateLogit().Output())
	return 1 / (1 + math.Exp(-logit))
}

// BestWord returns the vocabulary word with the highest probability.
func (s *StepOut) BestWord() int {
	return anyvec.MaxIndex(s.WordLogProbs().Output())
}

// BestCopy returns the plan position with the highest copy
// probability.
func (s *StepOut) BestCopy() int {
	return anyvec.MaxIndex(s.CopyLogProbs().Output())
}

// Next returns the decoder state for the following step.
func (s *StepOut) Next() data2text.State {
	start := s.words + s.positions + 1
	return data2text.State{
		Joined: anydiff.Slice(s.packed, start, start+2*s.state),
		Size:   s.state,
	}
}

// Pool pools the packed result and calls f with a view backed by the
// pooled value.
// Training loops must consume each step through Pool so that the
// recurrent chain is back-propagated through only once.
func (s *StepOut) Pool(f func(s *StepOut) anydiff.Res) anydiff.Res {
	return anydiff.Pool(s.packed, func(packed anydiff.Res) anydiff.Res {
		return f(&StepOut{
			packed:    packed,
			words:     s.words,
			positions: s.positions,
			state:     s.state,
		})
	})
}
