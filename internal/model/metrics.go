package model

import "sort"

// Metrics bundles the validation scores recorded for one candidate.
type Metrics struct {
	ROCAUC    float64 `json:"roc_auc"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// Evaluate scores predicted probabilities against true labels at the given
// decision threshold.
func Evaluate(y []int, proba []float64, threshold float64) Metrics {
	pred := BinaryFromProba(proba, threshold)
	prec, rec, f1 := PrecisionRecallF1(y, pred)
	return Metrics{
		ROCAUC:    ROCAUC(y, proba),
		Precision: prec,
		Recall:    rec,
		F1:        f1,
		Accuracy:  Accuracy(y, pred),
	}
}

// BinaryFromProba thresholds probabilities into 0/1 labels. The boundary is
// inclusive: p == threshold predicts the positive class.
func BinaryFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// ROCAUC computes the area under the ROC curve via the rank-sum statistic,
// averaging ranks across tied scores. Returns 0.5 when only one class is
// present.
func ROCAUC(y []int, proba []float64) float64 {
	n := len(y)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return proba[order[a]] < proba[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && proba[order[j]] == proba[order[i]] {
			j++
		}
		// 1-based average rank for the tie group [i, j).
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	nPos, nNeg := 0, 0
	rankSum := 0.0
	for i, label := range y {
		if label == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (rankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}

// PrecisionRecallF1 computes the three classification scores for binary 0/1
// labels, returning zeros where a denominator is empty.
func PrecisionRecallF1(y, pred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range y {
		switch {
		case pred[i] == 1 && y[i] == 1:
			tp++
		case pred[i] == 1 && y[i] == 0:
			fp++
		case pred[i] == 0 && y[i] == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return prec, rec, f1
}

// Accuracy is the fraction of matching labels.
func Accuracy(y, pred []int) float64 {
	if len(y) == 0 {
		return 0
	}
	c := 0
	for i := range y {
		if y[i] == pred[i] {
			c++
		}
	}
	return float64(c) / float64(len(y))
}
