// Package artifact defines the single unit of deployment: the bundle of
// schema, fitted transformer state, trained model parameters, decision
// threshold and training metadata produced by one training run. An artifact
// is immutable once created; serving swaps whole artifacts, never fields.
package artifact

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/churnml/churnd/internal/feature"
	"github.com/churnml/churnd/internal/model"
	"github.com/churnml/churnd/internal/schema"
)

// ModelSpec stores the selected algorithm together with its opaque learned
// parameters.
type ModelSpec struct {
	Algorithm  string          `json:"algorithm"`
	Parameters json.RawMessage `json:"parameters"`
}

// Metadata captures the full provenance of a training run, enough to
// reconstruct how any served prediction came to be.
type Metadata struct {
	RunID           string                   `json:"run_id"`
	TrainedAt       time.Time                `json:"trained_at"`
	DatasetRows     int                      `json:"dataset_rows"`
	TrainRows       int                      `json:"train_rows"`
	ValidationRows  int                      `json:"validation_rows"`
	ValidationSplit float64                  `json:"validation_split"`
	Seed            int64                    `json:"seed"`
	PosWeight       float64                  `json:"pos_weight"`
	Candidates      []string                 `json:"candidates"`
	Selected        string                   `json:"selected"`
	Scores          map[string]model.Metrics `json:"scores"`
}

// Artifact is the persisted bundle. All fields are written once by the
// training orchestrator and read-only everywhere else.
type Artifact struct {
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Schema    *schema.Schema `json:"schema"`
	State     *feature.State `json:"transformer_state"`
	Model     ModelSpec      `json:"model"`
	Threshold float64        `json:"threshold"`
	Metadata  Metadata       `json:"metadata"`

	classifier model.Classifier
}

// Compile instantiates the classifier from the stored parameters and
// cross-checks the transformer state against the schema. Called after
// decoding and before an artifact is allowed to serve.
func (a *Artifact) Compile() error {
	if a.Schema == nil || a.State == nil {
		return fmt.Errorf("artifact %s: missing schema or transformer state", a.Version)
	}
	if err := feature.CheckState(a.Schema, a.State); err != nil {
		return fmt.Errorf("artifact %s: %w", a.Version, err)
	}
	clf, err := model.New(a.Model.Algorithm)
	if err != nil {
		return fmt.Errorf("artifact %s: %w", a.Version, err)
	}
	if err := clf.UnmarshalParameters(a.Model.Parameters); err != nil {
		return fmt.Errorf("artifact %s: %w", a.Version, err)
	}
	a.classifier = clf
	return nil
}

// SetClassifier attaches an already-trained classifier. Used by the training
// orchestrator, which holds the live instance; everyone else goes through
// Compile.
func (a *Artifact) SetClassifier(c model.Classifier) { a.classifier = c }

// Prediction is the per-request scoring result.
type Prediction struct {
	CustomerID   string  `json:"customer_id,omitempty"`
	Probability  float64 `json:"probability"`
	Decision     string  `json:"decision"`
	ModelVersion string  `json:"model_version"`
}

const (
	DecisionChurn  = "churn"
	DecisionRetain = "retain"
)

// Score runs the full inference pipeline for one record: validate against
// the schema, apply the fitted transformer, predict, threshold. Pure and
// side-effect free; safe for any number of concurrent callers.
func (a *Artifact) Score(rec schema.RawRecord, customerID string) (Prediction, error) {
	if a.classifier == nil {
		return Prediction{}, fmt.Errorf("artifact %s: not compiled", a.Version)
	}
	if err := a.Schema.Validate(rec); err != nil {
		return Prediction{}, err
	}
	vec, err := feature.Apply(a.Schema, a.State, rec)
	if err != nil {
		return Prediction{}, err
	}
	p := a.classifier.PredictProba(vec)
	// Boundary inclusive: probability equal to the threshold means churn.
	decision := DecisionRetain
	if p >= a.Threshold {
		decision = DecisionChurn
	}
	return Prediction{
		CustomerID:   customerID,
		Probability:  p,
		Decision:     decision,
		ModelVersion: a.Version,
	}, nil
}

// Handle is an atomically swappable reference to the current artifact.
// Requests read a snapshot and keep using it even if a reload swaps in a new
// artifact mid-flight.
type Handle struct {
	ptr atomic.Pointer[Artifact]
}

// NewHandle wraps an artifact in a handle.
func NewHandle(a *Artifact) *Handle {
	h := &Handle{}
	h.ptr.Store(a)
	return h
}

// Current returns the active artifact snapshot.
func (h *Handle) Current() *Artifact { return h.ptr.Load() }

// Swap atomically replaces the active artifact.
func (h *Handle) Swap(a *Artifact) { h.ptr.Store(a) }
