package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"mediaid-gateway/internal/models"
)

//go:embed drugs.yaml
var defaultSeed []byte

// drugNamespace scopes name-derived drug ids.
var drugNamespace = uuid.MustParse("5b0d7c1e-3f4a-4c8e-9a61-2d7f0e3b9c45")

type seedFile struct {
	Drugs []models.DrugRecord `yaml:"drugs"`
}

// LoadSeed reads drug records from path, or from the built-in catalog when path is empty.
func LoadSeed(path string) ([]models.DrugRecord, error) {
	data := defaultSeed
	source := "built-in catalog"
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog seed %q: %w", path, err)
		}
		data = raw
		source = path
	}

	records, err := parseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return records, nil
}

func parseSeed(data []byte) ([]models.DrugRecord, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Drugs) == 0 {
		return nil, fmt.Errorf("no drugs defined")
	}

	seen := make(map[string]string, len(file.Drugs))
	records := make([]models.DrugRecord, 0, len(file.Drugs))
	for i, d := range file.Drugs {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("drug #%d: name must not be empty", i+1)
		}
		if strings.TrimSpace(d.ID) == "" {
			d.ID = DrugID(d.Name)
		}
		if prev, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("drug %q: id %s already used by %q", d.Name, d.ID, prev)
		}
		seen[d.ID] = d.Name

		d.Uses = nonNil(d.Uses)
		d.SideEffects = nonNil(d.SideEffects)
		d.Precautions = nonNil(d.Precautions)
		d.Symptoms = nonNil(d.Symptoms)
		records = append(records, d)
	}
	return records, nil
}

// DrugID derives the stable id used for a drug seeded without one.
func DrugID(name string) string {
	return uuid.NewSHA1(drugNamespace, []byte(strings.ToLower(strings.TrimSpace(name)))).String()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
