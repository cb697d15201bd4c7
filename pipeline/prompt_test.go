package pipeline_test

import (
	"context"
	"strings"
	"testing"
	"time"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/pipeline"
	"github.com/AntoineSierzputowski/carmen/store"
)

func comparedState(t *testing.T, reading carmen.Reading) *pipeline.WorkingState {
	t.Helper()
	cat := newTestCatalog(t)

	state := pipeline.NewWorkingState(reading)
	soil, err := pipeline.CompareSoilMoisture(cat, reading.PlantType, reading.Humidity)
	must.NoError(t, err)
	state.Comparisons[pipeline.ParamSoilMoisture] = soil
	temp, err := pipeline.CompareTemperature(cat, reading.PlantType, reading.Temperature)
	must.NoError(t, err)
	state.Comparisons[pipeline.ParamTemperature] = temp
	light, err := pipeline.CompareLight(cat, reading.PlantType, reading.Light)
	must.NoError(t, err)
	state.Comparisons[pipeline.ParamLight] = light
	return state
}

func TestBuildPrompt_CarriesReadingAndVerdicts(t *testing.T) {
	state := comparedState(t, healthyReading)

	prompt := pipeline.BuildPrompt(state)

	should.Contains(t, prompt, "plant basil-001 (type: basil)")
	should.Contains(t, prompt, "- Humidity: 60%")
	should.Contains(t, prompt, "- Light: 1200 lux")
	should.Contains(t, prompt, "- Temperature: 22°C")
	should.Contains(t, prompt, "Comparison results:")
	should.Contains(t, prompt, "Detailed comparisons:")
	should.Contains(t, prompt, "Return ONLY valid JSON")

	// Verdicts appear in a fixed order.
	soilIdx := strings.Index(prompt, "- soil_moisture:")
	tempIdx := strings.Index(prompt, "- temperature:")
	lightIdx := strings.Index(prompt, "- light:")
	must.True(t, soilIdx >= 0 && tempIdx >= 0 && lightIdx >= 0)
	should.Less(t, soilIdx, tempIdx)
	should.Less(t, tempIdx, lightIdx)
}

func TestBuildPrompt_IncludesSchema(t *testing.T) {
	state := comparedState(t, healthyReading)

	prompt := pipeline.BuildPrompt(state)

	should.Contains(t, prompt, "JSON Schema")
	should.Contains(t, prompt, `"required"`)
	should.Contains(t, prompt, `"ALERT"`)
}

func TestBuildPrompt_OmitsHistoryWhenEmpty(t *testing.T) {
	state := comparedState(t, healthyReading)
	state.History = pipeline.AnalyzeHistory(context.Background(), store.NewMemoryStore(), "basil-001", healthyReading, 10)

	prompt := pipeline.BuildPrompt(state)
	should.NotContains(t, prompt, "Historical context:")
}

func TestBuildPrompt_RendersHistory(t *testing.T) {
	ms := store.NewMemoryStore()
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	appendRecord(t, ms, "basil-001", base, 70, carmen.StatusAlert)
	appendRecord(t, ms, "basil-001", base.Add(24*time.Hour), 65, carmen.StatusOK)
	appendRecord(t, ms, "basil-001", base.Add(48*time.Hour), 55, carmen.StatusOK)

	state := comparedState(t, healthyReading)
	state.History = pipeline.AnalyzeHistory(context.Background(), ms, "basil-001", healthyReading, 10)

	prompt := pipeline.BuildPrompt(state)

	should.Contains(t, prompt, "Historical context:")
	should.Contains(t, prompt, "- Total previous analyses: 3")
	should.Contains(t, prompt, "- Time span: 2 day(s)")
	should.Contains(t, prompt, "* Humidity:")
	should.Contains(t, prompt, "- Last alert: 2026-08-20T12:00:00")
	should.Contains(t, prompt, "- Recent values (last analyses):")
	should.Contains(t, prompt, "1. 2026-08-22 - H:55% L:1500 T:22.0°C [OK]")
}
