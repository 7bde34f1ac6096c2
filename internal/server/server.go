// Package server exposes the scoring pipeline over HTTP. The only shared
// state on the request path is the immutable artifact behind an atomic
// handle, so concurrent requests never block on each other.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/churnml/churnd/internal/artifact"
	"github.com/churnml/churnd/internal/config"
	"github.com/churnml/churnd/internal/schema"
)

// Server wraps the HTTP components for churnd serving.
type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	handle *artifact.Handle
}

// New builds a server around an already-loaded artifact.
func New(cfg *config.Config, a *artifact.Artifact) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		cfg:    cfg,
		handle: artifact.NewHandle(a),
	}
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/predict", s.handlePredict)
	s.mux.HandleFunc("/v1/model", s.handleModel)
	s.mux.HandleFunc("/admin/reload", s.handleReload)
	return s
}

// Handler exposes the mux for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	log.Printf("serving artifact %s on %s", s.handle.Current().Version, addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

type predictRequest struct {
	CustomerID string           `json:"customer_id,omitempty"`
	Record     schema.RawRecord `json:"record"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if len(req.Record) == 0 {
		writeError(w, http.StatusBadRequest, "missing record", nil)
		return
	}

	// Snapshot: a concurrent reload must not change the artifact mid-request.
	a := s.handle.Current()
	pred, err := a.Score(req.Record, req.CustomerID)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, "record failed schema validation", verr.Violations)
			return
		}
		log.Printf("predict: scoring failed: %v", err)
		writeError(w, http.StatusInternalServerError, "scoring failed", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pred); err != nil {
		log.Printf("predict: write response: %v", err)
	}
}

type modelInfo struct {
	Version   string            `json:"version"`
	Algorithm string            `json:"algorithm"`
	Threshold float64           `json:"threshold"`
	TrainedAt string            `json:"trained_at"`
	Metadata  artifact.Metadata `json:"metadata"`
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	a := s.handle.Current()
	info := modelInfo{
		Version:   a.Version,
		Algorithm: a.Model.Algorithm,
		Threshold: a.Threshold,
		TrainedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Metadata:  a.Metadata,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.Printf("model: write response: %v", err)
	}
}

// handleReload re-reads the artifact directory and atomically swaps the new
// artifact in. On any failure the old artifact keeps serving.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	a, err := artifact.Load(s.cfg.Artifacts.Dir)
	if err != nil {
		log.Printf("reload: %v", err)
		writeError(w, http.StatusConflict, "reload failed, previous artifact still active: "+err.Error(), nil)
		return
	}
	old := s.handle.Current()
	s.handle.Swap(a)
	log.Printf("reload: artifact %s replaced %s", a.Version, old.Version)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"previous_version": old.Version,
		"current_version":  a.Version,
	})
}

type errorResponse struct {
	Error      string             `json:"error"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, violations []schema.Violation) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg, Violations: violations}); err != nil {
		log.Printf("failed to write error response: %v", err)
	}
}
