package training

import (
	"fmt"
	"math"
	"math/rand"
)

// stratifiedSplit partitions row indices into train and validation sets,
// preserving the class balance of the full dataset. The split is a pure
// function of (labels, fraction, seed). Fails when a class is too small to
// appear on both sides, since candidate scoring needs both classes held out.
func stratifiedSplit(y []int, fraction float64, seed int64) (train, val []int, err error) {
	var byClass [2][]int
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	if len(byClass[0]) == 0 || len(byClass[1]) == 0 {
		return nil, nil, fmt.Errorf("dataset contains a single class (%d negative, %d positive rows)", len(byClass[0]), len(byClass[1]))
	}

	rnd := rand.New(rand.NewSource(seed))
	for label, idx := range byClass {
		nVal := int(math.Round(fraction * float64(len(idx))))
		if nVal < 1 {
			nVal = 1
		}
		if nVal >= len(idx) {
			return nil, nil, fmt.Errorf("class %d has only %d rows, cannot stratify at split %v", label, len(idx), fraction)
		}
		rnd.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		val = append(val, idx[:nVal]...)
		train = append(train, idx[nVal:]...)
	}
	return train, val, nil
}

// posWeight is the negative/positive ratio of the training split, fed to the
// classifiers so the minority churn class is not drowned out.
func posWeight(y []int, idx []int) float64 {
	pos, neg := 0, 0
	for _, i := range idx {
		if y[i] == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 {
		return 1
	}
	return float64(neg) / float64(pos)
}
