// Package catalog holds the per-species ideal growing conditions the metric
// comparators judge readings against. The catalog is loaded once at startup
// and read-only afterwards; absence of a species is an error, never a default.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/catalog/state"
)

// Band is a min/max range with a single ideal point inside it.
type Band struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Ideal float64 `json:"ideal" yaml:"ideal"`
}

// Tolerances holds the per-metric maximum acceptable deviation from ideal.
type Tolerances struct {
	SoilMoisture float64 `json:"soil_moisture" yaml:"soil_moisture"`
	Light        float64 `json:"light" yaml:"light"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
}

// Conditions holds the ideal targets: soil moisture is a scalar target, light
// and temperature are banded.
type Conditions struct {
	SoilMoisture float64 `json:"soil_moisture" yaml:"soil_moisture"`
	Light        Band    `json:"light" yaml:"light"`
	Temperature  Band    `json:"temperature" yaml:"temperature"`
}

// Profile is one species' entry.
type Profile struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Ideal      Conditions `json:"ideal_conditions" yaml:"ideal_conditions"`
	Tolerances Tolerances `json:"tolerances" yaml:"tolerances"`
}

// Catalog is a read-only lookup of species profiles keyed by species id.
type Catalog struct {
	profiles map[string]Profile
}

// Load reads the catalog from the given state source. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON.
func Load(ctx context.Context, src state.State, path string) (*Catalog, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var profiles []Profile
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(raw, &profiles); err != nil {
			return nil, fmt.Errorf("failed to decode catalog YAML: %w", err)
		}
	} else {
		if err := json.Unmarshal(raw, &profiles); err != nil {
			return nil, fmt.Errorf("failed to decode catalog JSON: %w", err)
		}
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	byID := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry without id")
		}
		byID[p.ID] = p
	}

	return &Catalog{profiles: byID}, nil
}

// Lookup returns the profile for a species. Unknown species fail with
// carmen.ErrUnknownSpecies; there is no fallback profile.
func (c *Catalog) Lookup(species string) (Profile, error) {
	p, ok := c.profiles[species]
	if !ok {
		return Profile{}, fmt.Errorf("species %q: %w", species, carmen.ErrUnknownSpecies)
	}
	return p, nil
}

// Species returns the ids of every known species.
func (c *Catalog) Species() []string {
	out := make([]string, 0, len(c.profiles))
	for id := range c.profiles {
		out = append(out, id)
	}
	return out
}
