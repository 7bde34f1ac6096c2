// Package training fits the feature transformer and the candidate models on
// a labeled dataset, selects the best candidate by validation ROC-AUC, and
// persists the fitted pipeline as one versioned artifact.
//
// Every failure here is a configuration error, not a transient one: a failed
// run writes nothing, leaves any previous artifact untouched, and must not be
// retried automatically.
package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/churnml/churnd/internal/artifact"
	"github.com/churnml/churnd/internal/config"
	"github.com/churnml/churnd/internal/dataset"
	"github.com/churnml/churnd/internal/feature"
	"github.com/churnml/churnd/internal/model"
	"github.com/churnml/churnd/internal/schema"
	"github.com/churnml/churnd/internal/tracking"
)

// Failure marks a training run as unrecoverable. No artifact is produced
// when Run returns one.
type Failure struct {
	Stage string
	Err   error
}

func (f *Failure) Error() string { return fmt.Sprintf("training failed at %s: %v", f.Stage, f.Err) }
func (f *Failure) Unwrap() error { return f.Err }

func failf(stage, format string, args ...interface{}) error {
	return &Failure{Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Run executes the full training pipeline:
//
//	split -> fit transformer -> transform -> train candidates -> score ->
//	select -> persist artifact -> record run
//
// The returned artifact is already compiled and ready to serve. store may be
// nil to skip run tracking; a tracking error is logged, never fatal, because
// the artifact is already durable at that point.
func Run(cfg *config.Config, s *schema.Schema, data *dataset.Labeled, store *tracking.Store) (*artifact.Artifact, error) {
	tc := cfg.Training
	if data == nil || data.Len() == 0 {
		return nil, failf("data", "dataset is empty")
	}

	trainIdx, valIdx, err := stratifiedSplit(data.Labels, tc.ValidationSplit, tc.Seed)
	if err != nil {
		return nil, &Failure{Stage: "split", Err: err}
	}
	log.Printf("training: %d rows (%d train, %d validation)", data.Len(), len(trainIdx), len(valIdx))

	trainRecords := gather(data.Records, trainIdx)
	state, XTrain, err := feature.FitApply(s, trainRecords)
	if err != nil {
		return nil, &Failure{Stage: "fit", Err: err}
	}
	yTrain := gatherLabels(data.Labels, trainIdx)

	XVal := make([][]float64, len(valIdx))
	for i, idx := range valIdx {
		XVal[i], err = feature.Apply(s, state, data.Records[idx])
		if err != nil {
			return nil, &Failure{Stage: "transform", Err: err}
		}
	}
	yVal := gatherLabels(data.Labels, valIdx)

	weight := posWeight(data.Labels, trainIdx)
	opts := model.TrainOptions{Seed: tc.Seed, PosWeight: weight}
	log.Printf("training: feature width %d, positive-class weight %.2f", state.VectorWidth(), weight)

	var (
		trained    = make(map[string]model.Classifier, len(tc.Candidates))
		scores     = make(map[string]model.Metrics, len(tc.Candidates))
		candidates = append([]string(nil), tc.Candidates...)
	)
	for _, name := range candidates {
		clf, err := model.New(name)
		if err != nil {
			return nil, &Failure{Stage: "train", Err: err}
		}
		started := time.Now()
		if err := clf.Train(XTrain, yTrain, opts); err != nil {
			return nil, failf("train", "candidate %s: %w", name, err)
		}
		proba := make([]float64, len(XVal))
		for i, x := range XVal {
			proba[i] = clf.PredictProba(x)
		}
		m := model.Evaluate(yVal, proba, tc.Threshold)
		trained[name] = clf
		scores[name] = m
		log.Printf("training: candidate %s roc_auc=%.4f precision=%.4f recall=%.4f f1=%.4f (%.2fs)",
			name, m.ROCAUC, m.Precision, m.Recall, m.F1, time.Since(started).Seconds())
	}

	selected, bestScore := selectBest(candidates, scores)
	best := trained[selected]
	params, err := best.MarshalParameters()
	if err != nil {
		return nil, &Failure{Stage: "select", Err: err}
	}
	log.Printf("training: selected %s (roc_auc=%.4f)", best.Algorithm(), bestScore)

	runID := uuid.NewString()
	now := time.Now().UTC()
	a := &artifact.Artifact{
		Version:   now.Format("20060102-150405") + "-" + runID[:8],
		CreatedAt: now,
		Schema:    s,
		State:     state,
		Model: artifact.ModelSpec{
			Algorithm:  best.Algorithm(),
			Parameters: json.RawMessage(params),
		},
		Threshold: tc.Threshold,
		Metadata: artifact.Metadata{
			RunID:           runID,
			TrainedAt:       now,
			DatasetRows:     data.Len(),
			TrainRows:       len(trainIdx),
			ValidationRows:  len(valIdx),
			ValidationSplit: tc.ValidationSplit,
			Seed:            tc.Seed,
			PosWeight:       weight,
			Candidates:      candidates,
			Selected:        best.Algorithm(),
			Scores:          scores,
		},
	}
	a.SetClassifier(best)

	if err := artifact.Save(cfg.Artifacts.Dir, a); err != nil {
		return nil, &Failure{Stage: "persist", Err: err}
	}
	log.Printf("training: artifact %s written to %s", a.Version, cfg.Artifacts.Dir)

	if store != nil {
		err := store.RecordRun(tracking.RunRecord{
			RunID:           runID,
			CreatedAt:       now,
			ArtifactVersion: a.Version,
			Selected:        best.Algorithm(),
			Threshold:       tc.Threshold,
			ValidationSplit: tc.ValidationSplit,
			Seed:            tc.Seed,
			DatasetRows:     data.Len(),
			Scores:          scores,
		})
		if err != nil {
			log.Printf("training: run tracking failed (artifact %s is safe): %v", a.Version, err)
		}
	}
	return a, nil
}

// selectBest picks the candidate with the highest validation ROC-AUC.
// Candidates are scanned in configured order and a later candidate must
// strictly beat the current best, so ties always resolve to the
// earliest-listed candidate rather than whichever trained last.
func selectBest(candidates []string, scores map[string]model.Metrics) (string, float64) {
	best := ""
	bestScore := -1.0
	for _, name := range candidates {
		if m, ok := scores[name]; ok && m.ROCAUC > bestScore {
			best = name
			bestScore = m.ROCAUC
		}
	}
	return best, bestScore
}

// IsFailure reports whether err is a training failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

func gather(records []schema.RawRecord, idx []int) []schema.RawRecord {
	out := make([]schema.RawRecord, len(idx))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}

func gatherLabels(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}

// Describe renders a short human-readable summary for CLI output.
func Describe(a *artifact.Artifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "artifact %s\n", a.Version)
	fmt.Fprintf(&b, "  selected:  %s\n", a.Metadata.Selected)
	fmt.Fprintf(&b, "  threshold: %.2f\n", a.Threshold)
	for _, cand := range a.Metadata.Candidates {
		m := a.Metadata.Scores[cand]
		fmt.Fprintf(&b, "  %-18s roc_auc=%.4f precision=%.4f recall=%.4f f1=%.4f\n",
			cand, m.ROCAUC, m.Precision, m.Recall, m.F1)
	}
	return b.String()
}
