package dtsgd

import (
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// A Snapshot is an immutable view of the training loop state, handed
// to observers after iterations and epochs.
type Snapshot struct {
	// Epoch is the 1-based epoch that produced the snapshot.
	Epoch int

	// Iteration counts processed examples across all epochs.
	Iteration int

	// Cost is the length-normalized cost of the last example.
	Cost float64
}

// A Loop trains a model with per-example ("online") updates: one
// epoch is one pass over all samples with batch size 1.
//
// Per example it computes the gradient, transforms it (clipping, then
// the optimizer), scales it by the learning rate, and applies it.
type Loop struct {
	Samples     SampleList
	Gradienter  Gradienter
	Transformer Transformer
	Rater       Rater

	// Epochs is the number of passes over the samples.
	Epochs int

	// LogInterval is the example cadence of progress logging.
	// Zero disables progress logs.
	LogInterval int

	// CheckpointInterval is the epoch cadence of checkpoints.
	// Zero disables checkpointing.
	CheckpointInterval int

	// CheckpointDir receives the checkpoint files, keyed by Name.
	// It need not be empty; checkpoints accumulate.
	CheckpointDir string

	// Name is the logical model name used in checkpoint files.
	Name string

	// Model is snapshotted into the checkpoint files.
	Model serializer.Serializer

	// Log, if non-nil, receives progress output.
	Log *logrus.Logger

	postIteration []func(Snapshot)
	postEpoch     []func(Snapshot)
	postRun       []func(Snapshot)
}

// PostIteration registers an observer called after every processed
// example.
func (l *Loop) PostIteration(f func(Snapshot)) {
	l.postIteration = append(l.postIteration, f)
}

// PostEpoch registers an observer called after every epoch, before
// any checkpoint is written.
func (l *Loop) PostEpoch(f func(Snapshot)) {
	l.postEpoch = append(l.postEpoch, f)
}

// PostRun registers an observer called once after the final epoch.
func (l *Loop) PostRun(f func(Snapshot)) {
	l.postRun = append(l.postRun, f)
}

// Run trains until every epoch has completed or stop is closed.
//
// A failed checkpoint aborts the run; there are no retry semantics.
func (l *Loop) Run(stop <-chan struct{}) error {
	if l.Samples.Len() == 0 {
		panic("cannot run a training loop with an empty sample list")
	}
	var snapshot Snapshot
	maxIters := l.Samples.Len() * l.Epochs
	for epoch := 1; epoch <= l.Epochs; epoch++ {
		Shuffle(l.Samples)
		for i := 0; i < l.Samples.Len(); i++ {
			select {
			case <-stop:
				return nil
			default:
			}

			grad, cost := l.Gradienter.Gradient(i)
			if l.Transformer != nil {
				grad = l.Transformer.Transform(grad)
			}
			scaleGradient(grad, -l.Rater.Rate(float64(epoch-1)))
			grad.AddToVars()

			snapshot = Snapshot{
				Epoch:     epoch,
				Iteration: snapshot.Iteration + 1,
				Cost:      cost,
			}
			// Not an exact boundary: triggered whenever the cumulative
			// example count crosses a multiple of the interval.
			if l.Log != nil && l.LogInterval > 0 &&
				snapshot.Iteration%l.LogInterval == 0 {
				progress := 100 * float64(snapshot.Iteration) / float64(maxIters)
				l.Log.WithFields(logrus.Fields{
					"epoch":     epoch,
					"iteration": snapshot.Iteration,
					"loss":      cost,
				}).Infof("training progress %.2f%%", progress)
			}
			for _, f := range l.postIteration {
				f(snapshot)
			}
		}
		for _, f := range l.postEpoch {
			f(snapshot)
		}
		if l.CheckpointInterval > 0 && epoch%l.CheckpointInterval == 0 &&
			l.Model != nil {
			if err := Checkpoint(l.CheckpointDir, l.Name, epoch, l.Model); err != nil {
				return essentials.AddCtx("training loop", err)
			}
		}
	}
	for _, f := range l.postRun {
		f(snapshot)
	}
	return nil
}

func scaleGradient(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}
