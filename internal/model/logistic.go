package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// Logistic is a binary logistic-regression classifier trained with
// mini-batch gradient descent on (optionally class-weighted) log loss.
type Logistic struct {
	// Hyperparameters.
	LearningRate float64
	Epochs       int
	BatchSize    int
	L2           float64

	weights []float64
	bias    float64
}

// NewLogistic returns a classifier with defaults tuned for standardized
// inputs.
func NewLogistic() *Logistic {
	return &Logistic{
		LearningRate: 0.1,
		Epochs:       200,
		BatchSize:    64,
		L2:           1e-4,
	}
}

func (m *Logistic) Algorithm() string { return AlgorithmLogistic }

// Train fits weights and bias. The row order each epoch comes from a
// rand.Rand seeded with opt.Seed, so training is reproducible run to run.
func (m *Logistic) Train(X [][]float64, y []int, opt TrainOptions) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}
	n := len(X)
	width := len(X[0])
	posW := opt.posWeight()

	m.weights = make([]float64, width)
	m.bias = 0

	rnd := rand.New(rand.NewSource(opt.Seed))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	batch := m.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for start := 0; start < n; start += batch {
			end := start + batch
			if end > n {
				end = n
			}
			gradW := make([]float64, width)
			gradB := 0.0
			for _, idx := range order[start:end] {
				row := X[idx]
				p := sigmoid(m.score(row))
				w := 1.0
				if y[idx] == 1 {
					w = posW
				}
				d := w * (p - float64(y[idx]))
				for j, v := range row {
					gradW[j] += d * v
				}
				gradB += d
			}
			scale := m.LearningRate / float64(end-start)
			for j := range m.weights {
				m.weights[j] -= scale*gradW[j] + m.LearningRate*m.L2*m.weights[j]
			}
			m.bias -= scale * gradB
		}
	}
	return nil
}

// PredictProba returns the sigmoid of the linear score.
func (m *Logistic) PredictProba(x []float64) float64 {
	return sigmoid(m.score(x))
}

func (m *Logistic) score(x []float64) float64 {
	s := m.bias
	for j, w := range m.weights {
		if j < len(x) {
			s += w * x[j]
		}
	}
	return s
}

type logisticParams struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (m *Logistic) MarshalParameters() ([]byte, error) {
	if m.weights == nil {
		return nil, fmt.Errorf("logistic: not trained")
	}
	return json.Marshal(logisticParams{Weights: m.weights, Bias: m.bias})
}

func (m *Logistic) UnmarshalParameters(data []byte) error {
	var p logisticParams
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("logistic: decode parameters: %w", err)
	}
	if len(p.Weights) == 0 {
		return fmt.Errorf("logistic: parameters carry no weights")
	}
	m.weights = p.Weights
	m.bias = p.Bias
	return nil
}

func sigmoid(z float64) float64 {
	// Clamp to keep exp finite; beyond this range the result saturates anyway.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
