package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	artifactFile = "artifact.json"
	checksumFile = "checksum"
	stateFile    = "state.json"
)

// ErrNoArtifact is returned when the artifact directory has no state.json,
// i.e. nothing has ever been trained.
var ErrNoArtifact = errors.New("artifact: no trained artifact found")

// DirState tracks which artifact version is active. Kept next to the
// versioned bundles as <dir>/state.json.
type DirState struct {
	CurrentVersion  string `json:"current_version"`
	PreviousVersion string `json:"previous_version,omitempty"`
}

// Save persists the artifact under <dir>/<version>/ and then moves
// state.json forward. Every write is temp-file + rename, so a crash at any
// point leaves the previous artifact fully intact and state.json never
// points at a partial bundle.
func Save(dir string, a *Artifact) error {
	if strings.TrimSpace(a.Version) == "" {
		return errors.New("artifact: version is empty")
	}
	versionDir := filepath.Join(dir, a.Version)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return fmt.Errorf("artifact: create %s: %w", versionDir, err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(versionDir, artifactFile), data); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	if err := writeFileAtomic(filepath.Join(versionDir, checksumFile), []byte(hex.EncodeToString(sum[:])+"\n")); err != nil {
		return err
	}

	st, err := readDirState(dir)
	if err != nil && !errors.Is(err, ErrNoArtifact) {
		return err
	}
	next := DirState{CurrentVersion: a.Version, PreviousVersion: st.CurrentVersion}
	stateData, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode state: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, stateFile), stateData)
}

// Load reads the currently active artifact from dir, verifies its checksum,
// and compiles it. Any integrity or compatibility problem is fatal here: a
// service must refuse to start rather than serve under a corrupted mapping.
func Load(dir string) (*Artifact, error) {
	st, err := readDirState(dir)
	if err != nil {
		return nil, err
	}
	return LoadVersion(dir, st.CurrentVersion)
}

// LoadVersion reads one specific artifact version.
func LoadVersion(dir, version string) (*Artifact, error) {
	versionDir := filepath.Join(dir, version)
	data, err := os.ReadFile(filepath.Join(versionDir, artifactFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: read version %s: %w", version, err)
	}

	wantSum, err := os.ReadFile(filepath.Join(versionDir, checksumFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: read checksum for %s: %w", version, err)
	}
	got := sha256.Sum256(data)
	if hex.EncodeToString(got[:]) != strings.TrimSpace(string(wantSum)) {
		return nil, fmt.Errorf("artifact: checksum mismatch for version %s", version)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("artifact: decode version %s: %w", version, err)
	}
	if a.Version != version {
		return nil, fmt.Errorf("artifact: bundle says version %s but lives under %s", a.Version, version)
	}
	if err := a.Compile(); err != nil {
		return nil, err
	}
	return &a, nil
}

func readDirState(dir string) (DirState, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DirState{}, ErrNoArtifact
		}
		return DirState{}, fmt.Errorf("artifact: read state: %w", err)
	}
	var st DirState
	if err := json.Unmarshal(data, &st); err != nil {
		return DirState{}, fmt.Errorf("artifact: decode state: %w", err)
	}
	if strings.TrimSpace(st.CurrentVersion) == "" {
		return DirState{}, ErrNoArtifact
	}
	return st, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact: replace %s: %w", path, err)
	}
	return nil
}
