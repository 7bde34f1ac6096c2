package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New([]FieldSpec{
		{Name: "tenure", Kind: Numeric, Min: f64(0), Max: f64(120), Required: true},
		{Name: "contract", Kind: Categorical, Categories: []string{"month-to-month", "one-year", "two-year"}},
		{Name: "plan_tier", Kind: Ordinal, Levels: []string{"basic", "plus", "premium"}},
		{Name: "senior", Kind: Numeric, Default: "0"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRejectsBadSpecs(t *testing.T) {
	cases := []struct {
		name  string
		specs []FieldSpec
		want  string
	}{
		{"empty schema", nil, "no fields"},
		{"empty name", []FieldSpec{{Name: " ", Kind: Numeric}}, "empty name"},
		{
			"duplicate field",
			[]FieldSpec{{Name: "a", Kind: Numeric}, {Name: "a", Kind: Numeric}},
			"duplicate",
		},
		{
			"categorical without categories",
			[]FieldSpec{{Name: "a", Kind: Categorical}},
			"no categories",
		},
		{
			"ordinal without levels",
			[]FieldSpec{{Name: "a", Kind: Ordinal}},
			"no levels",
		},
		{
			"min above max",
			[]FieldSpec{{Name: "a", Kind: Numeric, Min: f64(5), Max: f64(1)}},
			"exceeds max",
		},
		{
			"unknown kind",
			[]FieldSpec{{Name: "a", Kind: "text"}},
			"unknown kind",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.specs)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	s := testSchema(t)

	cases := []struct {
		name string
		rec  RawRecord
		want string // "" means valid
	}{
		{"valid full record", RawRecord{"tenure": "12", "contract": "one-year", "plan_tier": "plus"}, ""},
		{"missing required", RawRecord{"contract": "one-year"}, "required field is missing"},
		{"missing optional with default", RawRecord{"tenure": "12"}, ""},
		{"unknown category passes", RawRecord{"tenure": "12", "contract": "lifetime"}, ""},
		{"unknown ordinal level passes", RawRecord{"tenure": "12", "plan_tier": "ultra"}, ""},
		{"extra field ignored", RawRecord{"tenure": "12", "note": "vip"}, ""},
		{"non-numeric", RawRecord{"tenure": "twelve"}, "not a number"},
		{"not finite", RawRecord{"tenure": "NaN"}, "not a number"},
		{"below minimum", RawRecord{"tenure": "-1"}, "below minimum"},
		{"above maximum", RawRecord{"tenure": "500"}, "above maximum"},
		{"blank counts as missing", RawRecord{"tenure": "  "}, "required field is missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(tc.rec)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	s := testSchema(t)
	err := s.Validate(RawRecord{"tenure": "abc", "senior": "also-bad"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d: %v", len(verr.Violations), verr.Violations)
	}
}

func TestNormalize(t *testing.T) {
	s := testSchema(t)
	in := RawRecord{"tenure": " 12 ", "contract": "one-year", "note": "dropme"}
	out := s.Normalize(in)

	if out["tenure"] != "12" {
		t.Errorf("tenure = %q, want trimmed %q", out["tenure"], "12")
	}
	if out["senior"] != "0" {
		t.Errorf("senior default = %q, want %q", out["senior"], "0")
	}
	if _, ok := out["note"]; ok {
		t.Errorf("undeclared field survived Normalize")
	}
	if _, ok := in["senior"]; ok {
		t.Errorf("Normalize mutated its input")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := testSchema(t)
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Schema
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Len() != s.Len() {
		t.Fatalf("round-trip lost fields: %d != %d", got.Len(), s.Len())
	}
	for i, f := range got.Fields() {
		if f.Name != s.Fields()[i].Name || f.Kind != s.Fields()[i].Kind {
			t.Errorf("field %d changed: %+v != %+v", i, f, s.Fields()[i])
		}
	}
}
