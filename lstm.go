package data2text

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/serializer"
)

const lstmRememberBias = 1

func init() {
	var g LSTMGate
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeLSTMGate)
	var l LSTMCell
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLSTMCell)
}

// State holds the hidden and cell vectors of a recurrent cell between
// decode steps.
//
// A State is exclusively owned by one decoding pass.
// A training loop that reuses a State across timesteps should pool
// Joined once per step (e.g. via StepOut.Pool of the decoders) so that
// back-propagation stays linear in the sequence length.
type State struct {
	// Joined holds the hidden vector followed by the cell vector.
	Joined anydiff.Res

	// Size is the width of each of the two vectors.
	Size int
}

// NewState combines separate hidden and cell vectors into a State.
func NewState(hidden, cell anydiff.Res) State {
	if hidden.Output().Len() != cell.Output().Len() {
		panic(fmt.Sprintf("hidden length %d does not match cell length %d",
			hidden.Output().Len(), cell.Output().Len()))
	}
	return State{
		Joined: anydiff.Concat(hidden, cell),
		Size:   hidden.Output().Len(),
	}
}

// Hidden returns the hidden vector.
func (s State) Hidden() anydiff.Res {
	return anydiff.Slice(s.Joined, 0, s.Size)
}

// Cell returns the cell vector.
func (s State) Cell() anydiff.Res {
	return anydiff.Slice(s.Joined, s.Size, 2*s.Size)
}

// An LSTMGate computes a value based on the current input, the
// previous hidden vector, and optionally a peephole into the cell.
type LSTMGate struct {
	StateWeights *anydiff.Var
	InputWeights *anydiff.Var
	Peephole     *anydiff.Var
	Biases       *anydiff.Var
	Activation   Activation
}

// DeserializeLSTMGate deserializes an LSTMGate.
func DeserializeLSTMGate(d []byte) (*LSTMGate, error) {
	var sw, iw, p, b *anyvecsave.S
	var a Activation
	if err := serializer.DeserializeAny(d, &sw, &iw, &p, &b, &a); err != nil {
		return nil, err
	}
	return &LSTMGate{
		StateWeights: anydiff.NewVar(sw.Vector),
		InputWeights: anydiff.NewVar(iw.Vector),
		Peephole:     anydiff.NewVar(p.Vector),
		Biases:       anydiff.NewVar(b.Vector),
		Activation:   a,
	}, nil
}

// NewLSTMGate creates a randomized LSTM gate.
func NewLSTMGate(c anyvec.Creator, in, state int, activation Activation) *LSTMGate {
	res := &LSTMGate{
		StateWeights: anydiff.NewVar(c.MakeVector(state * state)),
		InputWeights: anydiff.NewVar(c.MakeVector(state * in)),
		Peephole:     anydiff.NewVar(c.MakeVector(state)),
		Biases:       anydiff.NewVar(c.MakeVector(state)),
		Activation:   activation,
	}
	anyvec.Rand(res.StateWeights.Vector, anyvec.Normal, nil)
	anyvec.Rand(res.InputWeights.Vector, anyvec.Normal, nil)
	res.StateWeights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(state))))
	res.InputWeights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	return res
}

// Parameters returns the parameters of the gate.
func (g *LSTMGate) Parameters() []*anydiff.Var {
	return []*anydiff.Var{g.StateWeights, g.InputWeights, g.Peephole, g.Biases}
}

// SerializerType returns the unique ID used to serialize an LSTMGate
// with the serializer package.
func (g *LSTMGate) SerializerType() string {
	return "github.com/potamides/Data2Text.LSTMGate"
}

// Serialize serializes the gate.
func (g *LSTMGate) Serialize() ([]byte, error) {
	sw := &anyvecsave.S{Vector: g.StateWeights.Vector}
	iw := &anyvecsave.S{Vector: g.InputWeights.Vector}
	p := &anyvecsave.S{Vector: g.Peephole.Vector}
	b := &anyvecsave.S{Vector: g.Biases.Vector}
	return serializer.SerializeAny(sw, iw, p, b, g.Activation)
}

func (g *LSTMGate) apply(in, hidden, peepCell anydiff.Res) anydiff.Res {
	state := g.Biases.Vector.Len()
	inCount := g.InputWeights.Vector.Len() / state
	sum := anydiff.Add(
		applyWeights(state, state, g.StateWeights, hidden),
		applyWeights(inCount, state, g.InputWeights, in),
	)
	if peepCell != nil {
		sum = anydiff.Add(sum, anydiff.Mul(peepCell, g.Peephole))
	}
	sum = anydiff.Add(sum, g.Biases)
	return g.Activation.Apply(sum, 1)
}

// An LSTMCell is a long short-term memory cell stepped one input at a
// time with an explicitly threaded State.
//
// Unlike a sequence-level RNN block, the initial State may be any
// differentiable value, which the decoders use to start from the mean
// encoded record or an encoder's final state.
type LSTMCell struct {
	InCount    int
	StateCount int

	InValue  *LSTMGate
	In       *LSTMGate
	Remember *LSTMGate
	Output   *LSTMGate
}

// DeserializeLSTMCell deserializes an LSTMCell.
func DeserializeLSTMCell(d []byte) (*LSTMCell, error) {
	var inVal, in, rem, out *LSTMGate
	if err := serializer.DeserializeAny(d, &inVal, &in, &rem, &out); err != nil {
		return nil, err
	}
	state := inVal.Biases.Vector.Len()
	return &LSTMCell{
		InCount:    inVal.InputWeights.Vector.Len() / state,
		StateCount: state,
		InValue:    inVal,
		In:         in,
		Remember:   rem,
		Output:     out,
	}, nil
}

// NewLSTMCell creates a new, randomized LSTMCell.
//
// The remember gate is initially biased to remember things.
func NewLSTMCell(c anyvec.Creator, in, state int) *LSTMCell {
	res := &LSTMCell{
		InCount:    in,
		StateCount: state,
		InValue:    NewLSTMGate(c, in, state, Tanh),
		In:         NewLSTMGate(c, in, state, Sigmoid),
		Remember:   NewLSTMGate(c, in, state, Sigmoid),
		Output:     NewLSTMGate(c, in, state, Sigmoid),
	}
	res.Remember.Biases.Vector.AddScalar(c.MakeNumeric(lstmRememberBias))
	return res
}

// Start produces an all-zero State.
func (l *LSTMCell) Start(c anyvec.Creator) State {
	zero := anydiff.NewConst(c.MakeVector(l.StateCount))
	return NewState(zero, zero)
}

// Step applies the cell for a single timestep.
//
// The input gate and remember gate peek at the previous cell vector;
// the output gate peeks at the new one.
func (l *LSTMCell) Step(s State, in anydiff.Res) State {
	if s.Size != l.StateCount {
		panic(fmt.Sprintf("state size should be %d, but got %d", l.StateCount, s.Size))
	}
	if in.Output().Len() != l.InCount {
		panic(fmt.Sprintf("input length should be %d, but got %d", l.InCount,
			in.Output().Len()))
	}
	hidden, cell := s.Hidden(), s.Cell()
	inVal := l.InValue.apply(in, hidden, nil)
	inGate := l.In.apply(in, hidden, cell)
	remGate := l.Remember.apply(in, hidden, cell)
	newCell := anydiff.Add(anydiff.Mul(remGate, cell), anydiff.Mul(inGate, inVal))
	joined := anydiff.Pool(newCell, func(newCell anydiff.Res) anydiff.Res {
		outGate := l.Output.apply(in, hidden, newCell)
		newHidden := anydiff.Mul(outGate, anydiff.Tanh(newCell))
		return anydiff.Concat(newHidden, newCell)
	})
	return State{Joined: joined, Size: l.StateCount}
}

// Parameters returns the parameters of the cell.
func (l *LSTMCell) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, g := range []*LSTMGate{l.InValue, l.In, l.Remember, l.Output} {
		res = append(res, g.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize an LSTMCell
// with the serializer package.
func (l *LSTMCell) SerializerType() string {
	return "github.com/potamides/Data2Text.LSTMCell"
}

// Serialize serializes the cell.
func (l *LSTMCell) Serialize() ([]byte, error) {
	return serializer.SerializeAny(l.InValue, l.In, l.Remember, l.Output)
}

func applyWeights(in, out int, weights, vec anydiff.Res) anydiff.Res {
	weightMat := &anydiff.Matrix{Data: weights, Rows: out, Cols: in}
	inMat := &anydiff.Matrix{Data: vec, Rows: vec.Output().Len() / in, Cols: in}
	return anydiff.MatMul(false, true, inMat, weightMat).Data
}
