package training

import (
	"reflect"
	"testing"
)

func labels(nNeg, nPos int) []int {
	y := make([]int, 0, nNeg+nPos)
	for i := 0; i < nNeg; i++ {
		y = append(y, 0)
	}
	for i := 0; i < nPos; i++ {
		y = append(y, 1)
	}
	return y
}

func TestStratifiedSplitPreservesBalance(t *testing.T) {
	y := labels(80, 20)
	train, val, err := stratifiedSplit(y, 0.25, 42)
	if err != nil {
		t.Fatalf("stratifiedSplit: %v", err)
	}
	if len(train)+len(val) != len(y) {
		t.Fatalf("split lost rows: %d + %d != %d", len(train), len(val), len(y))
	}

	countPos := func(idx []int) int {
		n := 0
		for _, i := range idx {
			if y[i] == 1 {
				n++
			}
		}
		return n
	}
	if got := countPos(val); got != 5 {
		t.Errorf("validation positives = %d, want 5 (25%% of 20)", got)
	}
	if got := countPos(train); got != 15 {
		t.Errorf("train positives = %d, want 15", got)
	}

	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), train...), val...) {
		if seen[i] {
			t.Fatalf("row %d appears twice", i)
		}
		seen[i] = true
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	y := labels(50, 50)
	t1, v1, err := stratifiedSplit(y, 0.2, 7)
	if err != nil {
		t.Fatalf("stratifiedSplit: %v", err)
	}
	t2, v2, err := stratifiedSplit(y, 0.2, 7)
	if err != nil {
		t.Fatalf("stratifiedSplit: %v", err)
	}
	if !reflect.DeepEqual(t1, t2) || !reflect.DeepEqual(v1, v2) {
		t.Error("same seed produced different splits")
	}

	_, v3, err := stratifiedSplit(y, 0.2, 8)
	if err != nil {
		t.Fatalf("stratifiedSplit: %v", err)
	}
	if reflect.DeepEqual(v1, v3) {
		t.Error("different seeds produced identical validation sets (suspicious)")
	}
}

func TestStratifiedSplitSingleClassFails(t *testing.T) {
	if _, _, err := stratifiedSplit(labels(10, 0), 0.2, 1); err == nil {
		t.Error("expected error for single-class labels")
	}
	if _, _, err := stratifiedSplit(labels(0, 10), 0.2, 1); err == nil {
		t.Error("expected error for single-class labels")
	}
}

func TestStratifiedSplitTinyClassFails(t *testing.T) {
	// One positive row cannot appear on both sides of the split.
	if _, _, err := stratifiedSplit(labels(10, 1), 0.2, 1); err == nil {
		t.Error("expected error when a class cannot be stratified")
	}
}

func TestPosWeight(t *testing.T) {
	y := labels(75, 25)
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	if w := posWeight(y, idx); w != 3 {
		t.Errorf("posWeight = %v, want 3", w)
	}
}
