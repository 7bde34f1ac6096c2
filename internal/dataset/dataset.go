// Package dataset loads labeled training data from CSV into raw records.
// Columns are bound to the schema by header name at runtime; columns the
// schema does not declare (customer ids, free-text notes) are dropped here.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/churnml/churnd/internal/schema"
)

// Labeled pairs raw records with their binary churn labels.
type Labeled struct {
	Records []schema.RawRecord
	Labels  []int
}

// Len reports the number of rows.
func (d *Labeled) Len() int { return len(d.Records) }

// Load reads a CSV file with a header row. Header names are trimmed before
// matching; blank cells become missing values rather than empty strings, so
// the transformer's imputation sees them.
func Load(path string, s *schema.Schema, target string) (*Labeled, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	d, err := Read(f, s, target)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return d, nil
}

// Read parses CSV from r. Split out from Load for tests.
func Read(r io.Reader, s *schema.Schema, target string) (*Labeled, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	targetCol := -1
	wanted := make([]bool, len(header))
	for i, name := range header {
		if name == target {
			targetCol = i
			continue
		}
		if _, ok := s.Field(name); ok {
			wanted[i] = true
		}
	}
	if targetCol < 0 {
		return nil, fmt.Errorf("target column %q not found", target)
	}

	d := &Labeled{}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		label, err := ParseLabel(row[targetCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := make(schema.RawRecord, s.Len())
		for i, cell := range row {
			if i >= len(header) || !wanted[i] {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			rec[header[i]] = cell
		}
		d.Records = append(d.Records, rec)
		d.Labels = append(d.Labels, label)
	}
	return d, nil
}

// ParseLabel maps the common churn-label spellings onto 0/1.
func ParseLabel(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "yes", "true":
		return 1, nil
	case "0", "no", "false":
		return 0, nil
	}
	return 0, fmt.Errorf("unrecognized label %q", raw)
}
