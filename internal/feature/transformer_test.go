package feature

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/churnml/churnd/internal/schema"
)

func telcoSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.FieldSpec{
		{Name: "tenure_months", Kind: schema.Numeric},
		{Name: "contract_type", Kind: schema.Categorical, Categories: []string{"month-to-month", "one-year", "two-year"}},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

// trainingRecords builds 100 records whose tenure_months mean is exactly
// 32.4 (60 thirties and 40 thirty-sixes sum to 3240) with all three contract
// types observed.
func trainingRecords() []schema.RawRecord {
	contracts := []string{"month-to-month", "one-year", "two-year"}
	recs := make([]schema.RawRecord, 0, 100)
	for i := 0; i < 100; i++ {
		tenure := "30"
		if i >= 60 {
			tenure = "36"
		}
		recs = append(recs, schema.RawRecord{
			"tenure_months": tenure,
			"contract_type": contracts[i%3],
		})
	}
	return recs
}

func TestFitStoresTrainingMean(t *testing.T) {
	s := telcoSchema(t)
	st, err := Fit(s, trainingRecords())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := st.Fields[0].Stats.Mean; got != 32.4 {
		t.Errorf("fitted mean = %v, want 32.4", got)
	}
	wantVocab := []string{"month-to-month", "one-year", "two-year", MissingCategory}
	if !reflect.DeepEqual(st.Fields[1].Vocabulary, wantVocab) {
		t.Errorf("vocabulary = %v, want %v", st.Fields[1].Vocabulary, wantVocab)
	}
	if st.VectorWidth() != 1+4 {
		t.Errorf("vector width = %d, want 5", st.VectorWidth())
	}
}

func TestApplyMissingNumericImputesToMean(t *testing.T) {
	s := telcoSchema(t)
	st, err := Fit(s, trainingRecords())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vec, err := Apply(s, st, schema.RawRecord{"contract_type": "month-to-month"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Imputed to the fitted mean, so the standardized slot is exactly zero.
	if vec[0] != 0.0 {
		t.Errorf("numeric slot = %v, want exactly 0.0", vec[0])
	}
	want := []float64{0, 1, 0, 0, 0}
	if !reflect.DeepEqual(vec, want) {
		t.Errorf("vector = %v, want %v", vec, want)
	}
}

func TestApplyUnseenCategoryEncodesAllZero(t *testing.T) {
	s := telcoSchema(t)
	st, err := Fit(s, trainingRecords())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vec, err := Apply(s, st, schema.RawRecord{"tenure_months": "30", "contract_type": "lifetime"})
	if err != nil {
		t.Fatalf("Apply must not fail on an unseen category: %v", err)
	}
	for i, v := range vec[1:] {
		if v != 0 {
			t.Errorf("one-hot slot %d = %v, want all zeros for unseen category", i, v)
		}
	}
}

func TestApplyMissingCategoricalUsesReservedSlot(t *testing.T) {
	s := telcoSchema(t)
	st, err := Fit(s, trainingRecords())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vec, err := Apply(s, st, schema.RawRecord{"tenure_months": "30"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if vec[len(vec)-1] != 1 {
		t.Errorf("missing categorical did not one-hot the reserved slot: %v", vec)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	s := telcoSchema(t)
	recs := trainingRecords()

	st1, err := Fit(s, recs)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	st2, err := Fit(s, recs)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !reflect.DeepEqual(st1, st2) {
		t.Fatalf("two fits on identical data produced different state")
	}

	rec := schema.RawRecord{"tenure_months": "7", "contract_type": "two-year"}
	v1, err := Apply(s, st1, rec)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	v2, err := Apply(s, st2, rec)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("identical (record, state) produced different vectors: %v vs %v", v1, v2)
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := telcoSchema(t)
	st, err := Fit(s, trainingRecords())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got State
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(&got, st) {
		t.Fatalf("state changed across serialization:\n got %+v\nwant %+v", got, st)
	}

	rec := schema.RawRecord{"tenure_months": "55", "contract_type": "one-year"}
	v1, _ := Apply(s, st, rec)
	v2, err := Apply(s, &got, rec)
	if err != nil {
		t.Fatalf("Apply with round-tripped state: %v", err)
	}
	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("round-tripped state changes vectors: %v vs %v", v1, v2)
	}
}

func TestApplyRejectsMismatchedState(t *testing.T) {
	s := telcoSchema(t)
	st, err := Fit(s, trainingRecords())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	other, err := schema.New([]schema.FieldSpec{
		{Name: "monthly_charges", Kind: schema.Numeric},
		{Name: "contract_type", Kind: schema.Categorical, Categories: []string{"month-to-month"}},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}

	_, err = Apply(other, st, schema.RawRecord{"monthly_charges": "10"})
	var mismatch *StateMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected StateMismatchError, got %v", err)
	}
}

func TestFitEmptyDatasetFails(t *testing.T) {
	s := telcoSchema(t)
	if _, err := Fit(s, nil); err == nil {
		t.Fatal("expected error fitting on empty dataset")
	}
}

func TestFitZeroVarianceGuard(t *testing.T) {
	s, err := schema.New([]schema.FieldSpec{{Name: "constant", Kind: schema.Numeric}})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	recs := []schema.RawRecord{{"constant": "5"}, {"constant": "5"}, {"constant": "5"}}
	st, err := Fit(s, recs)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vec, err := Apply(s, st, recs[0])
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, v := range vec {
		if v != v || v > 1e18 || v < -1e18 {
			t.Errorf("zero-variance column produced non-finite slot %v", v)
		}
	}
}

func TestOrdinalEncodesByLevelIndex(t *testing.T) {
	s, err := schema.New([]schema.FieldSpec{
		{Name: "contract", Kind: schema.Ordinal, Levels: []string{"month-to-month", "one-year", "two-year"}},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	var recs []schema.RawRecord
	for i := 0; i < 3; i++ {
		recs = append(recs, schema.RawRecord{"contract": s.Fields()[0].Levels[i]})
	}
	st, err := Fit(s, recs)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// Level indices 0,1,2: mean 1, population std sqrt(2/3).
	if st.Fields[0].Stats.Mean != 1 {
		t.Errorf("ordinal mean = %v, want 1", st.Fields[0].Stats.Mean)
	}
	low, _ := Apply(s, st, schema.RawRecord{"contract": "month-to-month"})
	high, _ := Apply(s, st, schema.RawRecord{"contract": "two-year"})
	if !(low[0] < 0 && high[0] > 0 && low[0] == -high[0]) {
		t.Errorf("ordinal encoding not symmetric around the middle level: %v vs %v", low[0], high[0])
	}
}

func ExampleApply() {
	s, _ := schema.New([]schema.FieldSpec{
		{Name: "tenure_months", Kind: schema.Numeric},
		{Name: "contract_type", Kind: schema.Categorical, Categories: []string{"month-to-month", "one-year"}},
	})
	st, _ := Fit(s, []schema.RawRecord{
		{"tenure_months": "10", "contract_type": "month-to-month"},
		{"tenure_months": "30", "contract_type": "one-year"},
	})
	vec, _ := Apply(s, st, schema.RawRecord{"tenure_months": "20", "contract_type": "one-year"})
	fmt.Println(vec)
	// Output: [0 0 1 0]
}
