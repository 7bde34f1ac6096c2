package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// GradientBoosting is a boosted ensemble of depth-limited regression trees
// trained on the gradients of logistic loss, with shrinkage and optional row
// subsampling. It fills the boosted-trees slot in the candidate set.
type GradientBoosting struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	// Subsample is the row fraction drawn (without replacement) per tree.
	Subsample float64
	// Lambda is the L2 regularization on leaf values.
	Lambda float64

	initScore float64
	trees     []*treeNode
}

// NewGradientBoosting returns a booster with conservative defaults.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    150,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 5,
		Subsample:      0.9,
		Lambda:         1,
	}
}

func (m *GradientBoosting) Algorithm() string { return AlgorithmGradientBoosting }

func (m *GradientBoosting) Train(X [][]float64, y []int, opt TrainOptions) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}
	n := len(X)
	posW := opt.posWeight()
	rnd := rand.New(rand.NewSource(opt.Seed))

	// Prior = weighted log-odds of the positive class.
	pos, total := 0.0, 0.0
	for _, label := range y {
		if label == 1 {
			pos += posW
			total += posW
		} else {
			total++
		}
	}
	if pos == 0 || pos == total {
		return fmt.Errorf("gradient_boosting: training labels contain a single class")
	}
	m.initScore = math.Log(pos / (total - pos))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = m.initScore
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	m.trees = make([]*treeNode, 0, m.NEstimators)

	sampleSize := n
	if m.Subsample > 0 && m.Subsample < 1 {
		sampleSize = int(math.Ceil(m.Subsample * float64(n)))
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for t := 0; t < m.NEstimators; t++ {
		for i := range grad {
			p := sigmoid(scores[i])
			w := 1.0
			if y[i] == 1 {
				w = posW
			}
			grad[i] = w * (float64(y[i]) - p)
			hess[i] = w * p * (1 - p)
		}

		idx := all
		if sampleSize < n {
			rnd.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })
			idx = make([]int, sampleSize)
			copy(idx, all[:sampleSize])
			sort.Ints(idx)
		}

		builder := &gbTree{
			maxDepth:       m.MaxDepth,
			minSamplesLeaf: m.MinSamplesLeaf,
			lambda:         m.Lambda,
		}
		tree := builder.build(X, grad, hess, idx, 0)
		m.trees = append(m.trees, tree)

		for i := range scores {
			scores[i] += m.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

func (m *GradientBoosting) PredictProba(x []float64) float64 {
	score := m.initScore
	for _, t := range m.trees {
		score += m.LearningRate * t.predict(x)
	}
	return sigmoid(score)
}

type boostingParams struct {
	NEstimators  int         `json:"n_estimators"`
	LearningRate float64     `json:"learning_rate"`
	MaxDepth     int         `json:"max_depth"`
	Lambda       float64     `json:"lambda"`
	InitScore    float64     `json:"init_score"`
	Trees        []*treeNode `json:"trees"`
}

func (m *GradientBoosting) MarshalParameters() ([]byte, error) {
	if len(m.trees) == 0 {
		return nil, fmt.Errorf("gradient_boosting: not trained")
	}
	return json.Marshal(boostingParams{
		NEstimators:  m.NEstimators,
		LearningRate: m.LearningRate,
		MaxDepth:     m.MaxDepth,
		Lambda:       m.Lambda,
		InitScore:    m.initScore,
		Trees:        m.trees,
	})
}

func (m *GradientBoosting) UnmarshalParameters(data []byte) error {
	var p boostingParams
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("gradient_boosting: decode parameters: %w", err)
	}
	if len(p.Trees) == 0 {
		return fmt.Errorf("gradient_boosting: parameters carry no trees")
	}
	m.NEstimators = p.NEstimators
	m.LearningRate = p.LearningRate
	m.MaxDepth = p.MaxDepth
	m.Lambda = p.Lambda
	m.initScore = p.InitScore
	m.trees = p.Trees
	return nil
}

// gbTree builds one regression tree on gradient/hessian pairs, using the
// standard second-order gain G^2/(H+lambda) and Newton leaf values.
type gbTree struct {
	maxDepth       int
	minSamplesLeaf int
	lambda         float64
}

func (t *gbTree) build(X [][]float64, grad, hess []float64, idx []int, depth int) *treeNode {
	g, h := sums(grad, hess, idx)
	node := &treeNode{Leaf: true, Value: g / (h + t.lambda)}
	if depth >= t.maxDepth || len(idx) < 2*t.minSamplesLeaf {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, grad, hess, idx, g, h)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.Leaf = false
	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.build(X, grad, hess, left, depth+1)
	node.Right = t.build(X, grad, hess, right, depth+1)
	return node
}

func (t *gbTree) bestSplit(X [][]float64, grad, hess []float64, idx []int, g, h float64) (feature int, threshold float64, ok bool) {
	width := len(X[idx[0]])
	parent := g * g / (h + t.lambda)
	bestGain := 1e-12

	ordered := make([]int, len(idx))
	for f := 0; f < width; f++ {
		copy(ordered, idx)
		sort.SliceStable(ordered, func(a, b int) bool {
			va, vb := X[ordered[a]][f], X[ordered[b]][f]
			if va != vb {
				return va < vb
			}
			return ordered[a] < ordered[b]
		})

		gl, hl := 0.0, 0.0
		for s := 0; s < len(ordered)-1; s++ {
			i := ordered[s]
			gl += grad[i]
			hl += hess[i]
			if X[ordered[s]][f] == X[ordered[s+1]][f] {
				continue
			}
			if s+1 < t.minSamplesLeaf || len(ordered)-s-1 < t.minSamplesLeaf {
				continue
			}
			gr, hr := g-gl, h-hl
			gain := gl*gl/(hl+t.lambda) + gr*gr/(hr+t.lambda) - parent
			if gain > bestGain {
				bestGain = gain
				feature = f
				threshold = (X[ordered[s]][f] + X[ordered[s+1]][f]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func sums(grad, hess []float64, idx []int) (g, h float64) {
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	return g, h
}
