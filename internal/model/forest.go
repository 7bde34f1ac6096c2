package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of CART trees. Trees are trained
// sequentially with per-tree seeds derived from the run seed, so the fitted
// ensemble is identical across runs and machines.
type RandomForest struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures caps the features considered per split; 0 picks
	// round(sqrt(width)) at training time.
	MaxFeatures int

	trees []*treeNode
}

// NewRandomForest returns a forest with defaults sized for tabular data.
func NewRandomForest() *RandomForest {
	return &RandomForest{
		NEstimators:    100,
		MaxDepth:       10,
		MinSamplesLeaf: 2,
	}
}

func (m *RandomForest) Algorithm() string { return AlgorithmRandomForest }

func (m *RandomForest) Train(X [][]float64, y []int, opt TrainOptions) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}
	n := len(X)
	maxFeatures := m.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Round(math.Sqrt(float64(len(X[0])))))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}
	posW := opt.posWeight()

	m.trees = make([]*treeNode, m.NEstimators)
	for t := 0; t < m.NEstimators; t++ {
		rnd := rand.New(rand.NewSource(opt.Seed + int64(t)))
		// Bootstrap sample by index, not by copying rows.
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rnd.Intn(n)
		}
		tree := &classTree{
			maxDepth:       m.MaxDepth,
			minSamplesLeaf: m.MinSamplesLeaf,
			maxFeatures:    maxFeatures,
		}
		m.trees[t] = tree.fit(X, y, sample, posW, rnd)
	}
	return nil
}

// PredictProba averages the leaf positive fractions over all trees.
func (m *RandomForest) PredictProba(x []float64) float64 {
	if len(m.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range m.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(m.trees))
}

type forestParams struct {
	NEstimators    int         `json:"n_estimators"`
	MaxDepth       int         `json:"max_depth"`
	MinSamplesLeaf int         `json:"min_samples_leaf"`
	MaxFeatures    int         `json:"max_features"`
	Trees          []*treeNode `json:"trees"`
}

func (m *RandomForest) MarshalParameters() ([]byte, error) {
	if len(m.trees) == 0 {
		return nil, fmt.Errorf("random_forest: not trained")
	}
	return json.Marshal(forestParams{
		NEstimators:    m.NEstimators,
		MaxDepth:       m.MaxDepth,
		MinSamplesLeaf: m.MinSamplesLeaf,
		MaxFeatures:    m.MaxFeatures,
		Trees:          m.trees,
	})
}

func (m *RandomForest) UnmarshalParameters(data []byte) error {
	var p forestParams
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("random_forest: decode parameters: %w", err)
	}
	if len(p.Trees) == 0 {
		return fmt.Errorf("random_forest: parameters carry no trees")
	}
	m.NEstimators = p.NEstimators
	m.MaxDepth = p.MaxDepth
	m.MinSamplesLeaf = p.MinSamplesLeaf
	m.MaxFeatures = p.MaxFeatures
	m.trees = p.Trees
	return nil
}
