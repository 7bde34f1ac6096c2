// Package model implements the interchangeable binary classifiers the
// training orchestrator evaluates. Nothing outside this package depends on
// which concrete algorithm is active: the orchestrator selects by measured
// performance and the serving path dispatches through the stored algorithm
// identifier.
package model

import "fmt"

// Algorithm identifiers. These are persisted inside artifacts, so they are
// part of the on-disk contract and must stay stable.
const (
	AlgorithmLogistic         = "logistic"
	AlgorithmRandomForest     = "random_forest"
	AlgorithmGradientBoosting = "gradient_boosting"
)

// Algorithms lists every known algorithm in the default candidate-priority
// order. Ties during model selection resolve to the earlier entry.
var Algorithms = []string{
	AlgorithmLogistic,
	AlgorithmRandomForest,
	AlgorithmGradientBoosting,
}

// TrainOptions carries the knobs shared by all algorithms.
type TrainOptions struct {
	// Seed drives every stochastic choice an algorithm makes. Training with
	// the same data and seed reproduces identical parameters.
	Seed int64

	// PosWeight scales the loss contribution of positive (churn) samples to
	// counter class imbalance. Values <= 0 mean unweighted.
	PosWeight float64
}

func (o TrainOptions) posWeight() float64 {
	if o.PosWeight <= 0 {
		return 1
	}
	return o.PosWeight
}

// Classifier is a binary probabilistic classifier. Train is write-once:
// after it returns the classifier is immutable and safe for concurrent
// PredictProba calls.
type Classifier interface {
	Algorithm() string
	Train(X [][]float64, y []int, opt TrainOptions) error
	// PredictProba returns P(y=1) in [0,1] for one feature vector.
	PredictProba(x []float64) float64
	// MarshalParameters / UnmarshalParameters round-trip the learned
	// parameters losslessly as an opaque JSON blob.
	MarshalParameters() ([]byte, error)
	UnmarshalParameters(data []byte) error
}

// New constructs a fresh classifier for the given algorithm identifier.
func New(algorithm string) (Classifier, error) {
	switch algorithm {
	case AlgorithmLogistic:
		return NewLogistic(), nil
	case AlgorithmRandomForest:
		return NewRandomForest(), nil
	case AlgorithmGradientBoosting:
		return NewGradientBoosting(), nil
	}
	return nil, fmt.Errorf("model: unknown algorithm %q", algorithm)
}

func validateTrainingSet(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("model: empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("model: %d feature vectors but %d labels", len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("model: row %d has width %d, expected %d", i, len(row), width)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("model: label %d at row %d is not binary", label, i)
		}
	}
	return nil
}
