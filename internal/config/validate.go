package config

import (
	"fmt"
	"strings"

	"github.com/churnml/churnd/internal/model"
)

// Validate checks the configuration for problems that would make training or
// serving misbehave. All problems are reported at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr must not be empty")
	}
	if len(c.Schema) == 0 {
		problems = append(problems, "schema must declare at least one field")
	} else if _, err := c.BuildSchema(); err != nil {
		problems = append(problems, err.Error())
	}

	t := c.Training
	if t.ValidationSplit <= 0 || t.ValidationSplit >= 1 {
		problems = append(problems, fmt.Sprintf("training.validation_split must be in (0,1), got %v", t.ValidationSplit))
	}
	if t.Threshold < 0 || t.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("training.threshold must be in [0,1], got %v", t.Threshold))
	}
	if strings.TrimSpace(t.Target) == "" {
		problems = append(problems, "training.target must not be empty")
	}
	if len(t.Candidates) == 0 {
		problems = append(problems, "training.candidates must list at least one algorithm")
	}
	seen := make(map[string]bool)
	for _, cand := range t.Candidates {
		if seen[cand] {
			problems = append(problems, fmt.Sprintf("training.candidates lists %q twice", cand))
			continue
		}
		seen[cand] = true
		if _, err := model.New(cand); err != nil {
			problems = append(problems, fmt.Sprintf("training.candidates: unknown algorithm %q", cand))
		}
	}
	if strings.TrimSpace(c.Artifacts.Dir) == "" {
		problems = append(problems, "artifacts.dir must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
