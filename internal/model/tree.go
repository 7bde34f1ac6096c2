package model

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a CART tree. Exported fields only, so trees
// round-trip through the JSON parameter blob.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`

	// Value is P(y=1) at a classification leaf, or the additive step at a
	// regression leaf.
	Value float64 `json:"value"`
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// classTree grows a binary classification tree with weighted gini splits.
// Split search is fully deterministic: features are scanned in ascending
// order, thresholds in ascending value order, and a new best split must
// strictly beat the current one.
type classTree struct {
	maxDepth       int
	minSamplesLeaf int
	// maxFeatures > 0 samples that many features per split (for bagging);
	// 0 considers all features.
	maxFeatures int
}

func (t *classTree) fit(X [][]float64, y []int, idx []int, posW float64, rnd *rand.Rand) *treeNode {
	return t.build(X, y, idx, posW, rnd, 0)
}

func (t *classTree) build(X [][]float64, y []int, idx []int, posW float64, rnd *rand.Rand, depth int) *treeNode {
	pos, total := weightedCounts(y, idx, posW)
	node := &treeNode{Leaf: true, Value: pos / total}
	if pos == 0 || pos == total {
		return node
	}
	if t.maxDepth > 0 && depth >= t.maxDepth {
		return node
	}
	if len(idx) < 2*t.minLeaf() {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, y, idx, posW, rnd)
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
	node.Left = t.build(X, y, left, posW, rnd, depth+1)
	node.Right = t.build(X, y, right, posW, rnd, depth+1)
	return node
}

func (t *classTree) minLeaf() int {
	if t.minSamplesLeaf < 1 {
		return 1
	}
	return t.minSamplesLeaf
}

func (t *classTree) bestSplit(X [][]float64, y []int, idx []int, posW float64, rnd *rand.Rand) (feature int, threshold float64, ok bool) {
	width := len(X[idx[0]])
	features := make([]int, width)
	for j := range features {
		features[j] = j
	}
	if t.maxFeatures > 0 && t.maxFeatures < width {
		// Fisher-Yates prefix driven by the caller's seeded source, then
		// re-sorted so the scan order stays index-ascending.
		for i := 0; i < t.maxFeatures; i++ {
			j := i + rnd.Intn(width-i)
			features[i], features[j] = features[j], features[i]
		}
		features = features[:t.maxFeatures]
		sort.Ints(features)
	}

	parent := giniImpurity(y, idx, posW)
	bestGain := 1e-12
	minLeaf := t.minLeaf()

	ordered := make([]int, len(idx))
	for _, f := range features {
		copy(ordered, idx)
		sort.SliceStable(ordered, func(a, b int) bool {
			va, vb := X[ordered[a]][f], X[ordered[b]][f]
			if va != vb {
				return va < vb
			}
			return ordered[a] < ordered[b]
		})

		leftPos, leftTotal := 0.0, 0.0
		pos, total := weightedCounts(y, idx, posW)
		for s := 0; s < len(ordered)-1; s++ {
			i := ordered[s]
			w := 1.0
			if y[i] == 1 {
				w = posW
			}
			leftTotal += w
			if y[i] == 1 {
				leftPos += w
			}
			if X[ordered[s]][f] == X[ordered[s+1]][f] {
				continue
			}
			if s+1 < minLeaf || len(ordered)-s-1 < minLeaf {
				continue
			}
			rightPos := pos - leftPos
			rightTotal := total - leftTotal
			gain := parent -
				(leftTotal/total)*giniFromWeights(leftPos, leftTotal) -
				(rightTotal/total)*giniFromWeights(rightPos, rightTotal)
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

func weightedCounts(y []int, idx []int, posW float64) (pos, total float64) {
	for _, i := range idx {
		if y[i] == 1 {
			pos += posW
			total += posW
		} else {
			total++
		}
	}
	return pos, total
}

func giniImpurity(y []int, idx []int, posW float64) float64 {
	pos, total := weightedCounts(y, idx, posW)
	return giniFromWeights(pos, total)
}

func giniFromWeights(pos, total float64) float64 {
	if total == 0 {
		return 0
	}
	p := pos / total
	return 2 * p * (1 - p)
}
