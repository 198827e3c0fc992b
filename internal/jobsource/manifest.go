package jobsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/faaalmv/saf-gda/constants"
)

// ManifestSource reads a JSON job manifest and validates it against the
// manifest schema before any job is built. Malformed manifests are rejected
// at this boundary; the workers never see a half-shaped job.
type ManifestSource struct {
	Path   string
	Logger *slog.Logger
}

func NewManifestSource(path string, logger *slog.Logger) *ManifestSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestSource{Path: path, Logger: logger}
}

type manifest struct {
	Jobs []manifestJob `json:"jobs"`
}

type manifestJob struct {
	JobID        string `json:"job_id"`
	DocumentPath string `json:"document_path"`
	Priority     string `json:"priority"`
}

func (s *ManifestSource) Fetch(ctx context.Context) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(raw, s.Logger)
}

// ParseManifest validates raw manifest bytes and converts them to jobs.
func ParseManifest(raw []byte, logger *slog.Logger) ([]Job, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateJSONAgainstSchema(buildManifestSchema(), raw); err != nil {
		return nil, fmt.Errorf("manifest rejected: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	jobs := make([]Job, 0, len(m.Jobs))
	seen := make(map[string]struct{}, len(m.Jobs))
	for _, mj := range m.Jobs {
		if _, dup := seen[mj.JobID]; dup {
			return nil, fmt.Errorf("manifest rejected: duplicate job_id %q", mj.JobID)
		}
		seen[mj.JobID] = struct{}{}
		prio := constants.JobPriority(mj.Priority)
		if prio == "" {
			prio = constants.PriorityNormal
		}
		jobs = append(jobs, Job{
			ID:           mj.JobID,
			DocumentPath: mj.DocumentPath,
			Priority:     prio,
		})
	}
	logger.Info("manifest source fetched", "jobs", len(jobs))
	return jobs, nil
}

// buildManifestSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map, compiled locally to gate the manifest.
func buildManifestSchema() map[string]any {
	jobProps := map[string]any{
		"job_id":        map[string]any{"type": "string", "minLength": 1},
		"document_path": map[string]any{"type": "string", "minLength": 1},
		"priority":      map[string]any{"type": "string", "enum": []string{"HIGH", "NORMAL"}},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"jobs"},
		"properties": map[string]any{
			"jobs": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"job_id", "document_path"},
					"properties":           jobProps,
				},
			},
		},
	}
}

// validateJSONAgainstSchema validates "data" against "schemaMap".
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
