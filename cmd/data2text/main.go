// Command data2text trains and evaluates the two-stage
// data-to-text pipeline: a content planner that picks and orders the
// records worth talking about, then a text generator that renders the
// planned records into words.
//
// Both stages are trained with per-example updates and checkpointed
// periodically; a persisted stage is loaded instead of retrained.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"

	data2text "github.com/potamides/Data2Text"
	"github.com/potamides/Data2Text/dtbleu"
	"github.com/potamides/Data2Text/dtgen"
	"github.com/potamides/Data2Text/dtplan"
	"github.com/potamides/Data2Text/dtsgd"
)

func main() {
	var configPath string
	var dataPath string
	flag.StringVar(&configPath, "config", "config.yml", "training configuration file")
	flag.StringVar(&dataPath, "data", "data.json", "dataset file")
	flag.Parse()

	log := logrus.New()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		essentials.Die(err)
	}
	ds, err := LoadDataset(dataPath)
	if err != nil {
		essentials.Die(err)
	}
	log.WithFields(logrus.Fields{
		"words": ds.Vocab.Len(),
		"train": len(ds.Train),
		"valid": len(ds.Valid),
		"test":  len(ds.Test),
	}).Info("loaded dataset")

	c := anyvec32.CurrentCreator()
	stop := rip.NewRIP().Chan()

	planner, err := trainPlanner(c, cfg, ds, log, stop)
	if err != nil {
		essentials.Die(err)
	}
	if _, err := trainGenerator(c, cfg, ds, planner, log, stop); err != nil {
		essentials.Die(err)
	}
}

func trainPlanner(c anyvec.Creator, cfg *Config, ds *Dataset,
	log *logrus.Logger, stop <-chan struct{}) (*dtplan.ContentPlanner, error) {
	if dtsgd.HasModel(cfg.PlannerPath) {
		var planner *dtplan.ContentPlanner
		if err := dtsgd.LoadModel(cfg.PlannerPath, &planner); err != nil {
			return nil, err
		}
		log.WithField("path", cfg.PlannerPath).Info("loaded planner")
		return planner, nil
	}

	train, err := plannerSamples(ds.Vocab, ds.Train)
	if err != nil {
		return nil, err
	}
	valid, err := plannerSamples(ds.Vocab, ds.Valid)
	if err != nil {
		return nil, err
	}
	test, err := plannerSamples(ds.Vocab, ds.Test)
	if err != nil {
		return nil, err
	}

	planner := dtplan.NewContentPlanner(c, ds.Vocab.Len(), cfg.Hidden)
	trainer := &dtplan.Trainer{
		Planner: planner,
		Samples: train,
		Forcing: &dtsgd.TeacherForcing{Ratio: cfg.ForcingRatio},
	}
	loop := &dtsgd.Loop{
		Samples:    train,
		Gradienter: trainer,
		Transformer: dtsgd.Chain{
			&dtsgd.Clipper{Threshold: cfg.ClipThreshold},
			&dtsgd.Adagrad{InitialAccumulator: cfg.InitialAccumulator},
		},
		Rater:              dtsgd.ConstRater(cfg.LearningRate),
		Epochs:             cfg.Epochs,
		LogInterval:        cfg.LogInterval,
		CheckpointInterval: cfg.CheckpointInterval,
		CheckpointDir:      cfg.CheckpointDir,
		Name:               "planner",
		Model:              planner,
		Log:                log,
	}
	loop.PostEpoch(func(dtsgd.Snapshot) {
		eval := &dtplan.Evaluator{
			Planner: planner,
			Scorer:  &dtbleu.Score{},
			Vocab:   ds.Vocab,
			Log:     log,
		}
		eval.Evaluate(valid, "planner validation")
	})
	loop.PostRun(func(dtsgd.Snapshot) {
		eval := &dtplan.Evaluator{
			Planner: planner,
			Scorer:  &dtbleu.Score{},
			Vocab:   ds.Vocab,
			Log:     log,
		}
		eval.Evaluate(test, "planner test")
	})
	if err := loop.Run(stop); err != nil {
		return nil, err
	}
	if err := dtsgd.SaveModel(cfg.PlannerPath, planner); err != nil {
		return nil, err
	}
	return planner, nil
}

func trainGenerator(c anyvec.Creator, cfg *Config, ds *Dataset,
	planner *dtplan.ContentPlanner, log *logrus.Logger,
	stop <-chan struct{}) (*dtgen.TextGenerator, error) {
	if dtsgd.HasModel(cfg.GeneratorPath) {
		var generator *dtgen.TextGenerator
		if err := dtsgd.LoadModel(cfg.GeneratorPath, &generator); err != nil {
			return nil, err
		}
		log.WithField("path", cfg.GeneratorPath).Info("loaded generator")
		return generator, nil
	}

	train, err := generatorSamples(planner, ds.Vocab, ds.Train)
	if err != nil {
		return nil, err
	}
	valid, err := generatorSamples(planner, ds.Vocab, ds.Valid)
	if err != nil {
		return nil, err
	}
	test, err := generatorSamples(planner, ds.Vocab, ds.Test)
	if err != nil {
		return nil, err
	}

	generator := dtgen.NewTextGenerator(c, ds.Vocab.Len(), cfg.Hidden)
	trainer := &dtgen.Trainer{
		Generator: generator,
		Samples:   train,
		Forcing:   &dtsgd.TeacherForcing{Ratio: cfg.ForcingRatio},
	}
	loop := &dtsgd.Loop{
		Samples:    train,
		Gradienter: trainer,
		Transformer: dtsgd.Chain{
			&dtsgd.Clipper{Threshold: cfg.ClipThreshold},
			&dtsgd.Adagrad{InitialAccumulator: cfg.InitialAccumulator},
		},
		Rater:              dtsgd.ConstRater(cfg.LearningRate),
		Epochs:             cfg.Epochs,
		LogInterval:        cfg.LogInterval,
		CheckpointInterval: cfg.CheckpointInterval,
		CheckpointDir:      cfg.CheckpointDir,
		Name:               "generator",
		Model:              generator,
		Log:                log,
	}
	loop.PostEpoch(func(dtsgd.Snapshot) {
		eval := &dtgen.Evaluator{
			Generator: generator,
			Scorer:    &dtbleu.Score{},
			Vocab:     ds.Vocab,
			MaxLen:    cfg.MaxTextLen,
			Log:       log,
		}
		eval.Evaluate(valid, "generator validation")
	})
	loop.PostRun(func(dtsgd.Snapshot) {
		eval := &dtgen.Evaluator{
			Generator: generator,
			Scorer:    &dtbleu.Score{},
			Vocab:     ds.Vocab,
			MaxLen:    cfg.MaxTextLen,
			Log:       log,
		}
		eval.Evaluate(test, "generator test")
	})
	if err := loop.Run(stop); err != nil {
		return nil, err
	}
	if err := dtsgd.SaveModel(cfg.GeneratorPath, generator); err != nil {
		return nil, err
	}
	return generator, nil
}

func plannerSamples(vocab *data2text.Vocab, examples []*Example) (dtplan.SampleList, error) {
	samples := make([]*dtplan.Sample, len(examples))
	for i, ex := range examples {
		samples[i] = &dtplan.Sample{Records: ex.Records, Plan: ex.Plan}
	}
	return dtplan.NewSampleList(vocab, samples)
}

// generatorSamples encodes every example's record set with the
// trained planner and gathers the gold plan's record vectors.
// The vectors are detached copies; generator training never reaches
// back into the planner.
func generatorSamples(planner *dtplan.ContentPlanner, vocab *data2text.Vocab,
	examples []*Example) (dtgen.SampleList, error) {
	samples := make([]*dtgen.Sample, len(examples))
	for i, ex := range examples {
		enc := planner.Encode(ex.Records)
		steps := ex.ContentSteps()
		vecs := make([]anyvec.Vector, len(steps))
		values := make([]int, len(steps))
		for j, ptr := range steps {
			vecs[j] = enc.At(ptr).Output().Copy()
			values[j] = ex.Records[ptr].Value
		}
		samples[i] = &dtgen.Sample{
			Text:        ex.Text,
			Copied:      ex.Copied,
			PlanVecs:    vecs,
			CopyIndices: ex.CopyIndices,
			CopyValues:  values,
		}
	}
	return dtgen.NewSampleList(vocab, samples)
}
