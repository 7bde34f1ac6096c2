// Package schema declares the fixed set of input fields a churn model is
// trained and served against, and validates raw records against it.
//
// The schema is built once from static configuration and is immutable
// afterwards. It travels inside every persisted artifact so the training and
// serving paths can never silently disagree about the input contract.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldKind classifies how a field is encoded downstream.
type FieldKind string

const (
	Numeric     FieldKind = "numeric"
	Categorical FieldKind = "categorical"
	Ordinal     FieldKind = "ordinal"
)

// FieldSpec describes one input field.
type FieldSpec struct {
	Name string    `json:"name" yaml:"name"`
	Kind FieldKind `json:"kind" yaml:"kind"`

	// Categories is the declared category set for categorical fields. Values
	// outside this set are not rejected at validation time; the transformer
	// maps them to its unknown bucket.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Levels is the ordered level list for ordinal fields. Position defines
	// the numeric encoding.
	Levels []string `json:"levels,omitempty" yaml:"levels,omitempty"`

	// Min/Max bound the sanity range for numeric fields. Both nil means
	// unbounded.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Required fields must be present on every record unless a Default is
	// declared. Optional fields fall through to the transformer's
	// missing-value handling.
	Required bool   `json:"required" yaml:"required"`
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
}

// RawRecord maps field names to raw string values. An absent key means the
// field is missing; records are read-only once constructed.
type RawRecord map[string]string

// Schema is an ordered, immutable collection of field specs.
type Schema struct {
	fields []FieldSpec
	byName map[string]int
}

// New builds a Schema from field specs, rejecting malformed declarations.
func New(specs []FieldSpec) (*Schema, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("schema: no fields declared")
	}
	s := &Schema{
		fields: make([]FieldSpec, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	copy(s.fields, specs)
	for i, f := range s.fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("schema: field %d has an empty name", i)
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", name)
		}
		switch f.Kind {
		case Numeric:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return nil, fmt.Errorf("schema: field %q: min %v exceeds max %v", name, *f.Min, *f.Max)
			}
		case Categorical:
			if len(f.Categories) == 0 {
				return nil, fmt.Errorf("schema: categorical field %q declares no categories", name)
			}
		case Ordinal:
			if len(f.Levels) == 0 {
				return nil, fmt.Errorf("schema: ordinal field %q declares no levels", name)
			}
		default:
			return nil, fmt.Errorf("schema: field %q has unknown kind %q", name, f.Kind)
		}
		s.fields[i].Name = name
		s.byName[name] = i
	}
	return s, nil
}

// Fields returns the specs in declaration order. Callers must not mutate the
// returned slice.
func (s *Schema) Fields() []FieldSpec { return s.fields }

// Field looks up a spec by name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Len reports the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }

// Names returns the declared field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Violation reports one field failing validation.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) Error() string { return fmt.Sprintf("field %q: %s", v.Field, v.Reason) }

// ValidationError aggregates all violations found in one record.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Error()
	}
	return "schema: " + strings.Join(parts, "; ")
}

// Validate checks a record against the schema. Extra fields are ignored.
// Unknown categorical and ordinal values pass: rejecting them would make the
// service brittle to category drift, and the transformer degrades them to the
// unknown encoding instead. Numeric values must parse to a finite number
// inside the declared sanity range.
func (s *Schema) Validate(rec RawRecord) error {
	var violations []Violation
	for _, f := range s.fields {
		raw, present := rec[f.Name]
		if present && strings.TrimSpace(raw) == "" {
			present = false
		}
		if !present {
			if f.Required && f.Default == "" {
				violations = append(violations, Violation{Field: f.Name, Reason: "required field is missing"})
			}
			continue
		}
		if f.Kind != Numeric {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			violations = append(violations, Violation{Field: f.Name, Reason: fmt.Sprintf("not a number: %q", raw)})
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			violations = append(violations, Violation{Field: f.Name, Reason: "value is not finite"})
			continue
		}
		if f.Min != nil && v < *f.Min {
			violations = append(violations, Violation{Field: f.Name, Reason: fmt.Sprintf("value %v below minimum %v", v, *f.Min)})
		}
		if f.Max != nil && v > *f.Max {
			violations = append(violations, Violation{Field: f.Name, Reason: fmt.Sprintf("value %v above maximum %v", v, *f.Max)})
		}
	}
	if len(violations) > 0 {
		sort.Slice(violations, func(i, j int) bool { return violations[i].Field < violations[j].Field })
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Normalize returns a copy of rec restricted to declared fields, with
// declared defaults filled in for absent values. The input is never mutated.
func (s *Schema) Normalize(rec RawRecord) RawRecord {
	out := make(RawRecord, len(s.fields))
	for _, f := range s.fields {
		raw, present := rec[f.Name]
		if present && strings.TrimSpace(raw) != "" {
			out[f.Name] = strings.TrimSpace(raw)
		} else if f.Default != "" {
			out[f.Name] = f.Default
		}
	}
	return out
}

// JSON round-trips preserve the ordered field list so a schema embedded in an
// artifact reconstructs identically on load.

type schemaJSON struct {
	Fields []FieldSpec `json:"fields"`
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaJSON{Fields: s.fields})
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := New(raw.Fields)
	if err != nil {
		return err
	}
	*s = *built
	return nil
}
