package shipping

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var defaultTable []byte

type Provider struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	BaseCost float64 `yaml:"base_cost"`
	MinDays  int     `yaml:"min_days"`
	MaxDays  int     `yaml:"max_days"`
}

// Table is the static carrier price list plus the city tiers.
type Table struct {
	DefaultProvider    string     `yaml:"default_provider"`
	ExpressProvider    string     `yaml:"express_provider"`
	MajorCities        []string   `yaml:"major_cities"`
	SecondaryCities    []string   `yaml:"secondary_cities"`
	SecondarySurcharge float64    `yaml:"secondary_surcharge"`
	OtherSurcharge     float64    `yaml:"other_surcharge"`
	Providers          []Provider `yaml:"providers"`
}

// LoadTable reads a YAML table from path; an empty path yields the built-in table.
func LoadTable(path string) (Table, error) {
	data := defaultTable
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Table{}, fmt.Errorf("read shipping table: %w", err)
		}
		data = b
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse shipping table: %w", err)
	}
	if len(t.Providers) == 0 {
		return Table{}, fmt.Errorf("shipping table has no providers")
	}
	if t.DefaultProvider == "" {
		t.DefaultProvider = t.Providers[0].ID
	}
	if t.ExpressProvider == "" {
		t.ExpressProvider = t.DefaultProvider
	}
	return t, nil
}

// DefaultTable returns the built-in table.
func DefaultTable() Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}
