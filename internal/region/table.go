package region

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultTable []byte

// Table is the on-disk form of the city and province lookup data.
type Table struct {
	Version string       `yaml:"version"`
	Default string       `yaml:"default"`
	Regions []TableEntry `yaml:"regions"`
}

type TableEntry struct {
	Key     string   `yaml:"key"`
	Rank    int      `yaml:"rank"`
	Aliases []string `yaml:"aliases"`
	Cities  []string `yaml:"cities"`
}

// ParseTable decodes and validates a YAML lookup table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode region table: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTable reads a lookup table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region table: %w", err)
	}
	return ParseTable(data)
}

func (t *Table) validate() error {
	var errs []error
	if t.Version == "" {
		errs = append(errs, errors.New("region table: version is required"))
	}
	if _, err := Parse(t.Default); err != nil {
		errs = append(errs, fmt.Errorf("region table: default: %w", err))
	}

	seen := make(map[Region]bool)
	owner := make(map[string]Region)
	for _, e := range t.Regions {
		r, err := Parse(e.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("region table: %w", err))
			continue
		}
		if seen[r] {
			errs = append(errs, fmt.Errorf("region table: %s listed twice", r.Key()))
		}
		seen[r] = true
		if e.Rank != r.Rank() {
			errs = append(errs, fmt.Errorf("region table: %s has rank %d, want %d", r.Key(), e.Rank, r.Rank()))
		}
		for _, phrase := range append(append([]string{}, e.Aliases...), e.Cities...) {
			n := normalize(phrase)
			if n == "" {
				errs = append(errs, fmt.Errorf("region table: empty key under %s", r.Key()))
				continue
			}
			if prev, ok := owner[n]; ok && prev != r {
				errs = append(errs, fmt.Errorf("region table: %q maps to both %s and %s", n, prev.Key(), r.Key()))
			}
			owner[n] = r
		}
	}
	for _, r := range All {
		if !seen[r] {
			errs = append(errs, fmt.Errorf("region table: %s missing", r.Key()))
		}
	}
	return errors.Join(errs...)
}
