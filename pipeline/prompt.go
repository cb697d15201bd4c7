package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// maxRecentSnapshots caps how many historical entries the prompt carries.
const maxRecentSnapshots = 5

// resultSchema is the output contract the engine is asked to honor. The
// normalizer copes when it does not.
var resultSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"status": {
			Type: "string",
			Enum: []any{"OK", "ALERT"},
		},
		"message": {
			Type:        "string",
			Description: "A clear explanation of the analysis.",
		},
		"action": {
			Type:        "string",
			Description: "A single descriptive sentence in English explaining what action should be taken. Never a list or array.",
		},
	},
	Required: []string{"status", "message", "action"},
}

// BuildPrompt assembles the full context payload for the reasoning engine:
// the raw reading, every comparison verdict, the serialized verdict map, the
// historical trend rendering when available, and the output-format contract.
func BuildPrompt(state *WorkingState) string {
	var b strings.Builder

	r := state.Reading
	fmt.Fprintf(&b, "Analyze the following sensor data for plant %s (type: %s) and provide a JSON response:\n", r.PlantID, r.PlantType)
	fmt.Fprintf(&b, "- Humidity: %g%%\n", r.Humidity)
	fmt.Fprintf(&b, "- Light: %g lux\n", r.Light)
	fmt.Fprintf(&b, "- Temperature: %g°C\n", r.Temperature)

	b.WriteString("\nComparison results:\n")
	for _, param := range []string{ParamSoilMoisture, ParamTemperature, ParamLight} {
		if v, ok := state.Comparisons[param]; ok {
			fmt.Fprintf(&b, "- %s: %s - %s\n", v.Parameter, v.Status, v.Message)
		}
	}

	if detailed, err := json.MarshalIndent(state.Comparisons, "", "  "); err == nil {
		fmt.Fprintf(&b, "\nDetailed comparisons: %s\n", detailed)
	}

	if state.History.HasHistory {
		writeHistoryContext(&b, state.History)
	}

	b.WriteString("\n")
	b.WriteString(outputContract)

	if schema, err := json.MarshalIndent(resultSchema, "", "  "); err == nil {
		fmt.Fprintf(&b, "\nYour reply must validate against this JSON Schema:\n%s\n", schema)
	}

	return b.String()
}

func writeHistoryContext(b *strings.Builder, h HistorySummary) {
	b.WriteString("\nHistorical context:\n")
	fmt.Fprintf(b, "- Total previous analyses: %d\n", h.TotalAnalyses)
	fmt.Fprintf(b, "- Time span: %d day(s)\n", h.TimeSpanDays)
	fmt.Fprintf(b, "- Alert history: %d alert(s) (%g%%)\n", h.AlertCount, h.AlertPercent)

	if len(h.Trends) > 0 {
		b.WriteString("- Trends (compared to historical average):\n")
		if t, ok := h.Trends["humidity"]; ok {
			fmt.Fprintf(b, "  * Humidity: %s (%+.1f%%, avg: %.1f%%)\n", t.Direction, t.Change, t.AverageHistorical)
		}
		if t, ok := h.Trends["light"]; ok {
			fmt.Fprintf(b, "  * Light: %s (%+.1f lux, avg: %.1f lux)\n", t.Direction, t.Change, t.AverageHistorical)
		}
		if t, ok := h.Trends["temperature"]; ok {
			fmt.Fprintf(b, "  * Temperature: %s (%+.1f°C, avg: %.1f°C)\n", t.Direction, t.Change, t.AverageHistorical)
		}
	}

	if h.LastAlert != nil {
		fmt.Fprintf(b, "- Last alert: %s\n", h.LastAlert.Format("2006-01-02T15:04:05"))
	}

	if len(h.Recent) > 1 {
		b.WriteString("- Recent values (last analyses):\n")
		for i, snap := range h.Recent {
			if i == maxRecentSnapshots {
				break
			}
			fmt.Fprintf(b, "  %d. %s - H:%.0f%% L:%.0f T:%.1f°C [%s]\n",
				i+1, snap.Timestamp.Format("2006-01-02"), snap.Humidity, snap.Light, snap.Temperature, snap.Status)
		}
	}
}

const outputContract = `Return a JSON object with:
- status: "OK" or "ALERT"
- message: A clear explanation of the analysis
- action: A descriptive sentence in English explaining what action should be taken.
  This should be a natural English sentence describing the problem and recommended action.
  Examples:
  - "No action needed, conditions are optimal"
  - "Water the plant as soil moisture is too low"
  - "Increase lighting as light intensity is insufficient"
  - "Move the plant to a warmer location as temperature is too low"

The action field must be a single descriptive sentence in English, not a list or array.
If multiple issues exist, describe them in a natural sentence.

Analyze the conditions and decide the best action(s) considering:
- Current sensor readings (humidity, light, temperature)
- Comparison with ideal conditions for this plant type
- Historical trends (if available) - pay attention to whether values are improving, worsening, or stable
- Previous alerts and patterns in the historical data
- The specific needs of this plant type

If historical data is available, use it to:
- Detect trends (e.g., "humidity has been decreasing over the past week")
- Avoid repetitive recommendations (e.g., if you just recommended watering, don't recommend it again immediately)
- Provide context-aware advice (e.g., "humidity is low and has been decreasing, urgent action needed")

Return ONLY valid JSON, no additional text.`
