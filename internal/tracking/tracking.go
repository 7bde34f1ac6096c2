// Package tracking records training-run history in a local SQLite database,
// so every artifact's provenance and candidate scores stay queryable after
// the fact. Uses modernc.org/sqlite (pure Go, no cgo).
package tracking

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/churnml/churnd/internal/model"
)

// RunRecord is one completed training run.
type RunRecord struct {
	RunID           string
	CreatedAt       time.Time
	ArtifactVersion string
	Selected        string
	Threshold       float64
	ValidationSplit float64
	Seed            int64
	DatasetRows     int
	Scores          map[string]model.Metrics
}

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the run-history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tracking: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id           TEXT PRIMARY KEY,
		created_at       TEXT NOT NULL,
		artifact_version TEXT NOT NULL,
		selected         TEXT NOT NULL,
		threshold        REAL NOT NULL,
		validation_split REAL NOT NULL,
		seed             INTEGER NOT NULL,
		dataset_rows     INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_metrics (
		run_id    TEXT NOT NULL,
		candidate TEXT NOT NULL,
		metric    TEXT NOT NULL,
		value     REAL NOT NULL,
		PRIMARY KEY (run_id, candidate, metric)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("tracking: create tables: %w", err)
	}
	return nil
}

// RecordRun persists one run and its per-candidate metrics in a single
// transaction.
func (s *Store) RecordRun(r RunRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("tracking: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, created_at, artifact_version, selected, threshold, validation_split, seed, dataset_rows)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.ArtifactVersion, r.Selected,
		r.Threshold, r.ValidationSplit, r.Seed, r.DatasetRows,
	)
	if err != nil {
		return fmt.Errorf("tracking: insert run %s: %w", r.RunID, err)
	}

	candidates := make([]string, 0, len(r.Scores))
	for cand := range r.Scores {
		candidates = append(candidates, cand)
	}
	sort.Strings(candidates)
	for _, cand := range candidates {
		m := r.Scores[cand]
		for metric, value := range map[string]float64{
			"roc_auc":   m.ROCAUC,
			"precision": m.Precision,
			"recall":    m.Recall,
			"f1":        m.F1,
			"accuracy":  m.Accuracy,
		} {
			if _, err := tx.Exec(
				`INSERT INTO run_metrics (run_id, candidate, metric, value) VALUES (?, ?, ?, ?)`,
				r.RunID, cand, metric, value,
			); err != nil {
				return fmt.Errorf("tracking: insert metric %s/%s: %w", cand, metric, err)
			}
		}
	}
	return tx.Commit()
}

// RunSummary is one row of `churnd runs` output.
type RunSummary struct {
	RunID           string
	CreatedAt       time.Time
	ArtifactVersion string
	Selected        string
	ROCAUC          float64
	DatasetRows     int
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT r.run_id, r.created_at, r.artifact_version, r.selected, r.dataset_rows,
		        COALESCE(m.value, 0)
		 FROM runs r
		 LEFT JOIN run_metrics m
		   ON m.run_id = r.run_id AND m.candidate = r.selected AND m.metric = 'roc_auc'
		 ORDER BY r.created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("tracking: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.RunID, &created, &r.ArtifactVersion, &r.Selected, &r.DatasetRows, &r.ROCAUC); err != nil {
			return nil, fmt.Errorf("tracking: scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
