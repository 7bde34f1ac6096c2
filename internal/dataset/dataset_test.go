package dataset

import (
	"strings"
	"testing"

	"github.com/churnml/churnd/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.FieldSpec{
		{Name: "tenure", Kind: schema.Numeric},
		{Name: "Contract", Kind: schema.Categorical, Categories: []string{"Month-to-month", "One year", "Two year"}},
		{Name: "TotalCharges", Kind: schema.Numeric},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

const sampleCSV = `customerID, tenure ,Contract,TotalCharges,Churn
0001,1,Month-to-month,29.85,Yes
0002,34,One year,1889.5,No
0003,2,Month-to-month, ,Yes
`

func TestRead(t *testing.T) {
	s := testSchema(t)
	d, err := Read(strings.NewReader(sampleCSV), s, "Churn")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("rows = %d, want 3", d.Len())
	}
	wantLabels := []int{1, 0, 1}
	for i, want := range wantLabels {
		if d.Labels[i] != want {
			t.Errorf("label %d = %d, want %d", i, d.Labels[i], want)
		}
	}
	if d.Records[0]["tenure"] != "1" {
		t.Errorf("tenure = %q, want %q", d.Records[0]["tenure"], "1")
	}
	// Undeclared id column is dropped.
	if _, ok := d.Records[0]["customerID"]; ok {
		t.Error("customerID should not survive loading")
	}
	// Blank TotalCharges is a missing value, not an empty string.
	if v, ok := d.Records[2]["TotalCharges"]; ok {
		t.Errorf("blank cell loaded as %q, want missing", v)
	}
}

func TestReadMissingTarget(t *testing.T) {
	s := testSchema(t)
	_, err := Read(strings.NewReader("tenure,Contract\n1,One year\n"), s, "Churn")
	if err == nil || !strings.Contains(err.Error(), "target column") {
		t.Fatalf("expected missing-target error, got %v", err)
	}
}

func TestReadBadLabel(t *testing.T) {
	s := testSchema(t)
	_, err := Read(strings.NewReader("tenure,Churn\n1,maybe\n"), s, "Churn")
	if err == nil || !strings.Contains(err.Error(), "unrecognized label") {
		t.Fatalf("expected label error, got %v", err)
	}
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"Yes", 1, true},
		{" no ", 0, true},
		{"1", 1, true},
		{"0", 0, true},
		{"TRUE", 1, true},
		{"false", 0, true},
		{"churned", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseLabel(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseLabel(%q) = %d, %v; want %d", tc.raw, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseLabel(%q) succeeded, want error", tc.raw)
		}
	}
}
