package spec

import (
	"fmt"
	"os"
	"strings"

	"model-lifecycle/core/models"

	"gopkg.in/yaml.v3"
)

// JobsFile represents the YAML training jobs file
type JobsFile struct {
	DefaultModel string        `yaml:"default_model"`
	Jobs         []JobsFileJob `yaml:"jobs"`
}

// JobsFileJob represents one entry of the jobs section
type JobsFileJob struct {
	ID       string `yaml:"id"`
	Model    string `yaml:"model"`
	Schedule string `yaml:"schedule"`
	Active   *bool  `yaml:"active,omitempty"` // defaults to true
}

// ParseJobsFile parses a YAML jobs file into job definitions
func ParseJobsFile(specYAML string) ([]models.JobDefinition, error) {
	var file JobsFile
	if err := yaml.Unmarshal([]byte(specYAML), &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w: %w", models.ErrInvalidInput, err)
	}

	seen := make(map[string]bool, len(file.Jobs))
	defs := make([]models.JobDefinition, 0, len(file.Jobs))
	for i, job := range file.Jobs {
		id := strings.TrimSpace(job.ID)
		if id == "" {
			return nil, fmt.Errorf("job %d: missing id: %w", i, models.ErrInvalidInput)
		}
		if seen[id] {
			return nil, fmt.Errorf("job %s: duplicate id: %w", id, models.ErrInvalidInput)
		}
		seen[id] = true

		modelID := strings.TrimSpace(job.Model)
		if modelID == "" {
			modelID = strings.TrimSpace(file.DefaultModel)
		}
		if modelID == "" {
			return nil, fmt.Errorf("job %s: no model and no default_model: %w", id, models.ErrInvalidInput)
		}
		if strings.TrimSpace(job.Schedule) == "" {
			return nil, fmt.Errorf("job %s: missing schedule: %w", id, models.ErrInvalidInput)
		}

		active := true
		if job.Active != nil {
			active = *job.Active
		}
		defs = append(defs, models.JobDefinition{
			ID:       id,
			ModelID:  modelID,
			Schedule: strings.TrimSpace(job.Schedule),
			Active:   active,
		})
	}
	return defs, nil
}

// LoadJobsFile reads and parses a jobs file from disk
func LoadJobsFile(path string) ([]models.JobDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file %s: %w: %w", path, models.ErrIO, err)
	}
	return ParseJobsFile(string(data))
}
