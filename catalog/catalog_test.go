package catalog_test

import (
	"context"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/catalog"
	"github.com/AntoineSierzputowski/carmen/catalog/state"
)

const catalogJSON = `[
  {
    "id": "basil",
    "name": "Basil",
    "ideal_conditions": {
      "soil_moisture": 60,
      "light": {"min": 1000, "max": 2000, "ideal": 1500},
      "temperature": {"min": 18, "max": 26, "ideal": 22}
    },
    "tolerances": {"soil_moisture": 5, "light": 200, "temperature": 2}
  },
  {
    "id": "tomato",
    "name": "Tomato",
    "ideal_conditions": {
      "soil_moisture": 70,
      "light": {"min": 2000, "max": 4000, "ideal": 3000},
      "temperature": {"min": 16, "max": 28, "ideal": 24}
    },
    "tolerances": {"soil_moisture": 8, "light": 300, "temperature": 3}
  }
]`

const catalogYAML = `
- id: basil
  name: Basil
  ideal_conditions:
    soil_moisture: 60
    light: {min: 1000, max: 2000, ideal: 1500}
    temperature: {min: 18, max: 26, ideal: 22}
  tolerances:
    soil_moisture: 5
    light: 200
    temperature: 2
`

func TestLoad_JSON(t *testing.T) {
	cat, err := catalog.Load(context.Background(), state.NewTestState([]byte(catalogJSON)), "plants.json")
	must.NoError(t, err)

	should.ElementsMatch(t, []string{"basil", "tomato"}, cat.Species())

	p, err := cat.Lookup("basil")
	must.NoError(t, err)
	should.Equal(t, "Basil", p.Name)
	should.Equal(t, 60.0, p.Ideal.SoilMoisture)
	should.Equal(t, catalog.Band{Min: 1000, Max: 2000, Ideal: 1500}, p.Ideal.Light)
	should.Equal(t, 2.0, p.Tolerances.Temperature)
}

func TestLoad_YAML(t *testing.T) {
	cat, err := catalog.Load(context.Background(), state.NewTestState([]byte(catalogYAML)), "plants.yaml")
	must.NoError(t, err)

	p, err := cat.Lookup("basil")
	must.NoError(t, err)
	should.Equal(t, 60.0, p.Ideal.SoilMoisture)
	should.Equal(t, catalog.Band{Min: 18, Max: 26, Ideal: 22}, p.Ideal.Temperature)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  state.State
		path string
	}{
		{name: "source failure", src: state.NewTestStateWithError(), path: "plants.json"},
		{name: "invalid JSON", src: state.NewTestState([]byte("not json")), path: "plants.json"},
		{name: "empty catalog", src: state.NewTestState([]byte("[]")), path: "plants.json"},
		{name: "entry without id", src: state.NewTestState([]byte(`[{"name": "Mystery"}]`)), path: "plants.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Load(context.Background(), tt.src, tt.path)
			should.Error(t, err)
		})
	}
}

func TestLookup_UnknownSpecies(t *testing.T) {
	cat, err := catalog.Load(context.Background(), state.NewTestState([]byte(catalogJSON)), "plants.json")
	must.NoError(t, err)

	_, err = cat.Lookup("orchid")
	must.Error(t, err)
	should.ErrorIs(t, err, carmen.ErrUnknownSpecies)
	should.Contains(t, err.Error(), "orchid")
}
