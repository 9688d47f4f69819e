package data2text

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var f FC
	serializer.RegisterTypedDeserializer(f.SerializerType(), DeserializeFC)
	var a Activation
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeActivation)
}

// A Parameterizer is anything with learnable variables.
//
// The parameters of a Parameterizer must be in the same order every
// time Parameters() is called.
type Parameterizer interface {
	Parameters() []*anydiff.Var
}

// A Layer is a composable computation unit.
//
// A Layer's Apply method is inherently batched.
// The input's length must be divisible by the batch size, since the
// batch size indicates how many equally-long vectors are packed into
// the input vector.
type Layer interface {
	Apply(in anydiff.Res, batchSize int) anydiff.Res
}

// A Net evaluates a list of layers, one after another.
type Net []Layer

// Apply applies the network to a batch.
func (n Net) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	for _, l := range n {
		in = l.Apply(in, batchSize)
	}
	return in
}

// Parameters returns the parameters of every layer which implements
// Parameterizer, ordered from the first layer onwards.
func (n Net) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range n {
		if p, ok := x.(Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// FC is a fully-connected layer.
type FC struct {
	InCount  int
	OutCount int
	Weights  *anydiff.Var
	Biases   *anydiff.Var
}

// DeserializeFC attempts to deserialize an FC.
func DeserializeFC(d []byte) (*FC, error) {
	var weights, biases *anyvecsave.S
	if err := serializer.DeserializeAny(d, &weights, &biases); err != nil {
		return nil, essentials.AddCtx("deserialize FC", err)
	}
	inCount := weights.Vector.Len() / biases.Vector.Len()
	outCount := biases.Vector.Len()
	if inCount*outCount != weights.Vector.Len() {
		return nil, errors.New("deserialize FC: invalid matrix dimensions")
	}
	return &FC{
		InCount:  inCount,
		OutCount: outCount,
		Weights:  anydiff.NewVar(weights.Vector),
		Biases:   anydiff.NewVar(biases.Vector),
	}, nil
}

// NewFC creates a new, randomized FC.
// The randomization scheme targets an output variance of 1, given
// that the input variance is 1.
func NewFC(c anyvec.Creator, in, out int) *FC {
	res := &FC{
		InCount:  in,
		OutCount: out,
		Weights:  anydiff.NewVar(c.MakeVector(in * out)),
		Biases:   anydiff.NewVar(c.MakeVector(out)),
	}
	anyvec.Rand(res.Weights.Vector, anyvec.Normal, nil)
	res.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	return res
}

// Apply applies the fully-connected layer to a batch of inputs.
func (f *FC) Apply(in anydiff.Res, batch int) anydiff.Res {
	if batch*f.InCount != in.Output().Len() {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*f.InCount, in.Output().Len()))
	}
	weightMat := &anydiff.Matrix{
		Data: f.Weights,
		Rows: f.OutCount,
		Cols: f.InCount,
	}
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: batch,
		Cols: f.InCount,
	}
	weighted := anydiff.MatMul(false, true, inMat, weightMat)
	return anydiff.AddRepeated(weighted.Data, f.Biases)
}

// Parameters returns a slice containing the weights and the biases,
// in that order.
func (f *FC) Parameters() []*anydiff.Var {
	return []*anydiff.Var{f.Weights, f.Biases}
}

// SerializerType returns the unique ID used to serialize an FC with
// the serializer package.
func (f *FC) SerializerType() string {
	return "github.com/potamides/Data2Text.FC"
}

// Serialize serializes the FC.
func (f *FC) Serialize() ([]byte, error) {
	weights := &anyvecsave.S{Vector: f.Weights.Vector}
	biases := &anyvecsave.S{Vector: f.Biases.Vector}
	return serializer.SerializeAny(weights, biases)
}

// Linear is a fully-connected layer without biases, used for the
// bias-free projections in the attention scoring paths.
type Linear struct {
	InCount  int
	OutCount int
	Weights  *anydiff.Var
}

// NewLinear creates a new, randomized Linear.
func NewLinear(c anyvec.Creator, in, out int) *Linear {
	res := &Linear{
		InCount:  in,
		OutCount: out,
		Weights:  anydiff.NewVar(c.MakeVector(in * out)),
	}
	anyvec.Rand(res.Weights.Vector, anyvec.Normal, nil)
	res.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	return res
}

// Apply applies the layer to a batch of inputs.
func (l *Linear) Apply(in anydiff.Res, batch int) anydiff.Res {
	if batch*l.InCount != in.Output().Len() {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*l.InCount, in.Output().Len()))
	}
	weightMat := &anydiff.Matrix{
		Data: l.Weights,
		Rows: l.OutCount,
		Cols: l.InCount,
	}
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: batch,
		Cols: l.InCount,
	}
	return anydiff.MatMul(false, true, inMat, weightMat).Data
}

// Parameters returns a slice containing the weights.
func (l *Linear) Parameters() []*anydiff.Var {
	return []*anydiff.Var{l.Weights}
}

// An Activation is a standard activation function.
type Activation int

// These are standard activation functions.
const (
	Tanh Activation = iota
	LogSoftmax
	Sigmoid
	ReLU
	LeakyReLU
)

const leakyReLUSlope = 0.01

// DeserializeActivation deserializes an Activation.
func DeserializeActivation(d []byte) (Activation, error) {
	if len(d) != 1 {
		return 0, fmt.Errorf("deserialize Activation: data length (%d) should be 1", len(d))
	}
	a := Activation(d[0])
	if a > LeakyReLU {
		return 0, fmt.Errorf("deserialize Activation: unknown activation ID: %d", a)
	}
	return a, nil
}

// Apply applies the activation function.
func (a Activation) Apply(in anydiff.Res, n int) anydiff.Res {
	switch a {
	case Tanh:
		return anydiff.Tanh(in)
	case LogSoftmax:
		inLen := in.Output().Len()
		if inLen%n != 0 {
			panic("batch size must divide input length")
		}
		return anydiff.LogSoftmax(in, inLen/n)
	case Sigmoid:
		return anydiff.Sigmoid(in)
	case ReLU:
		return anydiff.ClipPos(in)
	case LeakyReLU:
		c := in.Output().Creator()
		return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
			neg := anydiff.ClipPos(anydiff.Scale(in, c.MakeNumeric(-1)))
			return anydiff.Add(
				anydiff.ClipPos(in),
				anydiff.Scale(neg, c.MakeNumeric(-leakyReLUSlope)),
			)
		})
	default:
		panic(fmt.Sprintf("unknown activation: %d", a))
	}
}

// SerializerType returns the unique ID used to serialize an
// Activation.
func (a Activation) SerializerType() string {
	return "github.com/potamides/Data2Text.Activation"
}

// Serialize serializes the activation.
func (a Activation) Serialize() ([]byte, error) {
	return []byte{byte(a)}, nil
}
