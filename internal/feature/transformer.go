// Package feature turns raw records into fixed-length numeric vectors.
//
// The transformer is fit once on training data and applied many times at
// inference. Apply is a pure function of (record, state): the same inputs
// produce bit-identical vectors on any machine, in any order. Any divergence
// between the fit-time and apply-time logic would silently corrupt every
// downstream prediction, so both live in this package and share one layout.
package feature

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/churnml/churnd/internal/schema"
)

// MissingCategory is the reserved vocabulary entry used to encode absent
// categorical values. It is always the last slot of a fitted vocabulary.
const MissingCategory = "__missing__"

// minStd floors the fitted standard deviation so scaling never divides by
// zero on constant columns.
const minStd = 1e-9

// NumericStats holds the fitted scaling parameters for one numeric or
// ordinal field.
type NumericStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FieldState holds the fitted parameters for one field.
type FieldState struct {
	Name string           `json:"name"`
	Kind schema.FieldKind `json:"kind"`

	// Stats is set for numeric and ordinal fields.
	Stats *NumericStats `json:"stats,omitempty"`

	// Vocabulary is the fixed, sorted category list for categorical fields,
	// with MissingCategory appended last. Slot index = position in this list.
	Vocabulary []string `json:"vocabulary,omitempty"`

	// Levels snapshots the ordinal level order the stats were fitted against.
	Levels []string `json:"levels,omitempty"`
}

// Width reports how many vector slots the field occupies.
func (f *FieldState) Width() int {
	if f.Kind == schema.Categorical {
		return len(f.Vocabulary)
	}
	return 1
}

// State is the complete fitted transformer: one FieldState per schema field,
// in schema order. Immutable after Fit; serialized verbatim into artifacts.
type State struct {
	Fields []FieldState `json:"fields"`
}

// VectorWidth is the length of every vector Apply produces from this state.
func (s *State) VectorWidth() int {
	w := 0
	for i := range s.Fields {
		w += s.Fields[i].Width()
	}
	return w
}

// StateMismatchError reports a fitted state that does not belong to the
// schema it is being applied with. This is a deployment error (wrong
// artifact), never a data error.
type StateMismatchError struct {
	Reason string
}

func (e *StateMismatchError) Error() string {
	return "feature: state does not match schema: " + e.Reason
}

// Fit computes transformer state from training records. Numeric and ordinal
// fields get mean/std over the observed values (missing values are excluded
// from the moments); categorical fields get the sorted unique observed
// categories plus the reserved missing slot.
func Fit(s *schema.Schema, records []schema.RawRecord) (*State, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("feature: cannot fit on an empty dataset")
	}
	st := &State{Fields: make([]FieldState, 0, s.Len())}
	for _, spec := range s.Fields() {
		fs := FieldState{Name: spec.Name, Kind: spec.Kind}
		switch spec.Kind {
		case schema.Categorical:
			seen := make(map[string]struct{})
			for _, rec := range records {
				if v, ok := lookup(rec, spec); ok {
					seen[v] = struct{}{}
				}
			}
			vocab := make([]string, 0, len(seen)+1)
			for v := range seen {
				vocab = append(vocab, v)
			}
			// Sorted order, never map-iteration order: vocabularies must be
			// reproducible across runs.
			sort.Strings(vocab)
			fs.Vocabulary = append(vocab, MissingCategory)
		case schema.Numeric, schema.Ordinal:
			var vals []float64
			for _, rec := range records {
				if v, ok := numericValue(rec, spec); ok {
					vals = append(vals, v)
				}
			}
			fs.Stats = fitStats(vals)
			if spec.Kind == schema.Ordinal {
				fs.Levels = append([]string(nil), spec.Levels...)
			}
		}
		st.Fields = append(st.Fields, fs)
	}
	return st, nil
}

// Apply encodes one record against a fitted state. It never fails on
// well-formed input: missing numerics impute to the fitted mean, missing
// categoricals one-hot onto the reserved slot, and unseen categories encode
// as an all-zero sub-vector. The only error is a state/schema mismatch.
func Apply(s *schema.Schema, st *State, rec schema.RawRecord) ([]float64, error) {
	if err := CheckState(s, st); err != nil {
		return nil, err
	}
	out := make([]float64, 0, st.VectorWidth())
	specs := s.Fields()
	for i := range st.Fields {
		fs := &st.Fields[i]
		spec := specs[i]
		switch fs.Kind {
		case schema.Categorical:
			sub := make([]float64, len(fs.Vocabulary))
			v, ok := lookup(rec, spec)
			if !ok {
				v = MissingCategory
			}
			for j, cat := range fs.Vocabulary {
				if cat == v {
					sub[j] = 1
					break
				}
			}
			out = append(out, sub...)
		default:
			v, ok := numericValueWithLevels(rec, spec, fs.Levels)
			if !ok {
				v = fs.Stats.Mean
			}
			out = append(out, (v-fs.Stats.Mean)/fs.Stats.Std)
		}
	}
	return out, nil
}

// CheckState verifies a fitted state belongs to the given schema: same
// fields, same order, same kinds. Guards against serving under a mismatched
// artifact.
func CheckState(s *schema.Schema, st *State) error {
	if st == nil {
		return &StateMismatchError{Reason: "state is nil"}
	}
	specs := s.Fields()
	if len(st.Fields) != len(specs) {
		return &StateMismatchError{Reason: fmt.Sprintf("state has %d fields, schema declares %d", len(st.Fields), len(specs))}
	}
	for i := range st.Fields {
		if st.Fields[i].Name != specs[i].Name {
			return &StateMismatchError{Reason: fmt.Sprintf("field %d is %q in state but %q in schema", i, st.Fields[i].Name, specs[i].Name)}
		}
		if st.Fields[i].Kind != specs[i].Kind {
			return &StateMismatchError{Reason: fmt.Sprintf("field %q is %s in state but %s in schema", specs[i].Name, st.Fields[i].Kind, specs[i].Kind)}
		}
	}
	return nil
}

// FitApply fits on records and returns the state together with the encoded
// matrix, transforming each row with the exact code path inference uses.
func FitApply(s *schema.Schema, records []schema.RawRecord) (*State, [][]float64, error) {
	st, err := Fit(s, records)
	if err != nil {
		return nil, nil, err
	}
	X := make([][]float64, len(records))
	for i, rec := range records {
		X[i], err = Apply(s, st, rec)
		if err != nil {
			return nil, nil, err
		}
	}
	return st, X, nil
}

func fitStats(vals []float64) *NumericStats {
	if len(vals) == 0 {
		return &NumericStats{Mean: 0, Std: 1}
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	variance := 0.0
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	std := math.Sqrt(variance)
	if std < minStd {
		std = minStd
	}
	return &NumericStats{Mean: mean, Std: std}
}

// lookup fetches a field value, falling back to the declared default. The
// second return is false when the value is missing.
func lookup(rec schema.RawRecord, spec schema.FieldSpec) (string, bool) {
	v, ok := rec[spec.Name]
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		if spec.Default != "" {
			return spec.Default, true
		}
		return "", false
	}
	return v, true
}

func numericValue(rec schema.RawRecord, spec schema.FieldSpec) (float64, bool) {
	return numericValueWithLevels(rec, spec, spec.Levels)
}

// numericValueWithLevels resolves a field to its numeric encoding: ordinals
// map to their level index, numerics parse as float. Unparseable or unknown
// values count as missing so apply degrades instead of failing.
func numericValueWithLevels(rec schema.RawRecord, spec schema.FieldSpec, levels []string) (float64, bool) {
	raw, ok := lookup(rec, spec)
	if !ok {
		return 0, false
	}
	if spec.Kind == schema.Ordinal {
		for i, lvl := range levels {
			if lvl == raw {
				return float64(i), true
			}
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
