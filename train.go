// train.go
//
// Training pipeline: synthesize episodes, store them, fit the decision tree
// and persist the model to MODEL_PATH and the database.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/classifier"
	"github.com/robalobadob/numguess/internal/dataset"
	"github.com/robalobadob/numguess/internal/features"
	"github.com/robalobadob/numguess/internal/synth"
)

// train generates a fresh dataset from cfg and fits a model on it.
func train(ctx context.Context, cfg config, ds *dataset.Store) (*classifier.DecisionTree, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	data, err := synth.GenerateDataset(rng, cfg.NumSamples, cfg.TrainMaxNumber)
	if err != nil {
		return nil, fmt.Errorf("generate dataset: %w", err)
	}
	ev := log.Info().
		Int("episodes", data.Episodes).
		Int("examples", len(data.Examples)).
		Int("fallbacks", data.Fallbacks)
	for l, n := range data.LabelCounts() {
		ev = ev.Int(string(features.Label(l).Outcome()), n)
	}
	ev.Msg("dataset generated")

	run, err := ds.SaveRun(ctx, dataset.Run{
		MaxNumber:  cfg.TrainMaxNumber,
		NumSamples: cfg.NumSamples,
		Seed:       cfg.Seed,
		Fallbacks:  data.Fallbacks,
	}, data.Examples)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	log.Info().Str("run", run.ID).Msg("dataset stored")

	return fitAndSave(ctx, cfg, ds, run.ID, data.Examples)
}

// retrain fits a model on the examples of a stored run.
func retrain(ctx context.Context, cfg config, ds *dataset.Store, runID string) (*classifier.DecisionTree, error) {
	examples, err := ds.Examples(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	log.Info().Str("run", runID).Int("examples", len(examples)).Msg("dataset loaded")
	return fitAndSave(ctx, cfg, ds, runID, examples)
}

func fitAndSave(ctx context.Context, cfg config, ds *dataset.Store, runID string, examples []features.Example) (*classifier.DecisionTree, error) {
	tree := classifier.NewDecisionTree(cfg.MaxDepth, cfg.MinSplit)
	if err := tree.Fit(examples); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if tree.NumClasses < features.NumLabels {
		log.Warn().Int("classes", tree.NumClasses).Msg("model never saw a correct guess; every candidate will score 0")
	}
	log.Info().Int("nodes", len(tree.Nodes)).Int("leaves", tree.Leaves()).Msg("model trained")

	var buf bytes.Buffer
	if err := classifier.Save(&buf, tree); err != nil {
		return nil, err
	}
	id, err := ds.SaveModel(ctx, runID, classifier.KindDecisionTree, buf.Bytes())
	if err != nil {
		return nil, err
	}
	if cfg.ModelPath != "" {
		if err := classifier.SaveFile(cfg.ModelPath, tree); err != nil {
			return nil, fmt.Errorf("write model: %w", err)
		}
	}
	log.Info().Str("model", id).Str("path", cfg.ModelPath).Msg("model saved")
	return tree, nil
}

// loadModel returns the model at cfg.ModelPath, else the newest stored
// model, else a freshly trained one.
func loadModel(ctx context.Context, cfg config, ds *dataset.Store) (*classifier.DecisionTree, error) {
	if cfg.ModelPath != "" {
		tree, err := classifier.LoadFile(cfg.ModelPath)
		if err == nil {
			log.Info().Str("path", cfg.ModelPath).Msg("model loaded from file")
			return tree, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
		}
	}

	m, err := ds.LatestModel(ctx)
	switch {
	case err == nil:
		tree, err := classifier.Load(bytes.NewReader(m.Body))
		if err != nil {
			return nil, fmt.Errorf("load stored model %s: %w", m.ID, err)
		}
		log.Info().Str("model", m.ID).Msg("model loaded from database")
		return tree, nil
	case !errors.Is(err, dataset.ErrNoModel):
		return nil, err
	}

	log.Warn().Msg("no model found, training one")
	return train(ctx, cfg, ds)
}
