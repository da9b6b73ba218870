package approval

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of predefined approval processes.
type SeedFile struct {
	TenantID  string        `yaml:"tenant_id"`
	CreatedBy string        `yaml:"created_by"`
	Processes []SeedProcess `yaml:"processes"`
}

type SeedProcess struct {
	ProcessInput `yaml:",inline"`
	Status       ProcessStatus `yaml:"status"`
}

func LoadSeedFile(path string) (*SeedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(b)
}

func ParseSeed(b []byte) (*SeedFile, error) {
	var file SeedFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if file.TenantID == "" {
		return nil, &ValidationError{Problems: []string{"seed file needs a tenant_id"}}
	}
	if file.CreatedBy == "" {
		file.CreatedBy = "seed"
	}
	return &file, nil
}

// Seed creates the processes of a seed file through the registry, skipping
// any whose name already exists for the same object type. It returns the
// number created.
func Seed(ctx context.Context, registry ProcessRegistry, file *SeedFile, logger *zap.Logger) (int, error) {
	existing, err := registry.List(ctx, file.TenantID, ProcessFilter{})
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.ObjectType+"/"+p.Name] = true
	}

	created := 0
	for _, sp := range file.Processes {
		key := sp.ObjectType + "/" + sp.Name
		if seen[key] {
			logger.Info("Process exists, skipping", zap.String("process", sp.Name), zap.String("object_type", sp.ObjectType))
			continue
		}

		p, err := registry.Create(ctx, file.TenantID, file.CreatedBy, sp.ProcessInput)
		if err != nil {
			return created, fmt.Errorf("process %q: %w", sp.Name, err)
		}
		if sp.Status != "" && sp.Status != ProcessDraft {
			if sp.Status == ProcessInactive {
				if _, err := registry.SetStatus(ctx, file.TenantID, p.ID, ProcessActive); err != nil {
					return created, fmt.Errorf("process %q: %w", sp.Name, err)
				}
			}
			if _, err := registry.SetStatus(ctx, file.TenantID, p.ID, sp.Status); err != nil {
				return created, fmt.Errorf("process %q: %w", sp.Name, err)
			}
		}
		seen[key] = true
		created++
		logger.Info("Process seeded", zap.String("process", sp.Name), zap.String("status", string(sp.Status)))
	}
	return created, nil
}
