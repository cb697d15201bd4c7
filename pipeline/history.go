package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/AntoineSierzputowski/carmen"
)

// DefaultHistoryWindow is the number of past analyses the trend analyzer
// fetches per run.
const DefaultHistoryWindow = 10

// stableThresholdPercent is the change-percent band inside which a trend is
// reported as stable regardless of sign.
const stableThresholdPercent = 2.0

// Trend describes the directional change of the current reading relative to
// the mean of the historical window for one metric.
type Trend struct {
	Direction         string  `json:"direction"` // increasing, decreasing, stable
	Change            float64 `json:"change"`
	ChangePercent     float64 `json:"change_percent"`
	AverageHistorical float64 `json:"average_historical"`
	Period            string  `json:"period"`
}

// Snapshot is an AnalysisRecord-lite entry carried in the history summary.
type Snapshot struct {
	Timestamp   time.Time     `json:"timestamp"`
	Humidity    float64       `json:"humidity"`
	Light       float64       `json:"light"`
	Temperature float64       `json:"temperature"`
	Status      carmen.Status `json:"status"`
}

// Averages holds per-metric historical means.
type Averages struct {
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	Temperature float64 `json:"temperature"`
}

// HistorySummary is the derived (never persisted) trend context for one run.
// Degraded history is not an error: HasHistory=false plus a diagnostic note is
// the worst case the analyzer ever reports.
type HistorySummary struct {
	HasHistory bool `json:"has_history"`

	// Recent holds the fetched window, newest first.
	Recent []Snapshot       `json:"recent_analyses,omitempty"`
	Trends map[string]Trend `json:"trends,omitempty"`

	TotalAnalyses int        `json:"total_analyses"`
	AlertCount    int        `json:"alert_count"`
	AlertPercent  float64    `json:"alert_percentage"`
	LastAlert     *time.Time `json:"last_alert_date,omitempty"`
	TimeSpanDays  int        `json:"time_span_days"`
	Averages      Averages   `json:"average_values"`

	// Note explains an empty or degraded summary.
	Note string `json:"note,omitempty"`
}

// Degraded reports whether history was skipped because of a retrieval or
// computation failure rather than a genuinely empty history.
func (h HistorySummary) Degraded() bool {
	return !h.HasHistory && h.Note != "" && h.Note != noHistoryNote
}

const noHistoryNote = "No historical data available"

// AnalyzeHistory fetches the recent analysis window for a plant and computes
// per-metric trends of the current in-flight reading against it, plus
// aggregate alert statistics. It never returns an error: store failures are
// absorbed into a summary with HasHistory=false and a diagnostic note.
func AnalyzeHistory(ctx context.Context, store carmen.AnalysisStore, plantID string, current carmen.Reading, window int) HistorySummary {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if store == nil {
		return HistorySummary{Note: "Error retrieving history: no store configured"}
	}

	records, err := store.FetchRecent(ctx, plantID, window)
	if err != nil {
		slog.Error("HISTORY: Failed to fetch records", "plant_id", plantID, "error", err)
		return HistorySummary{Note: fmt.Sprintf("Error retrieving history: %v", err)}
	}

	if len(records) == 0 {
		slog.Debug("HISTORY: No history found", "plant_id", plantID)
		return HistorySummary{Note: noHistoryNote}
	}

	// Records arrive newest first; trend math wants chronological order.
	humidity := make([]float64, 0, len(records))
	light := make([]float64, 0, len(records))
	temperature := make([]float64, 0, len(records))
	snapshots := make([]Snapshot, 0, len(records))

	alertCount := 0
	var lastAlert *time.Time
	for _, rec := range records {
		snapshots = append(snapshots, Snapshot{
			Timestamp:   rec.Timestamp,
			Humidity:    rec.Humidity,
			Light:       rec.Light,
			Temperature: rec.Temperature,
			Status:      rec.Status,
		})
		if rec.Status == carmen.StatusAlert {
			alertCount++
			if lastAlert == nil {
				ts := rec.Timestamp
				lastAlert = &ts
			}
		}
	}
	for i := len(records) - 1; i >= 0; i-- {
		humidity = append(humidity, records[i].Humidity)
		light = append(light, records[i].Light)
		temperature = append(temperature, records[i].Temperature)
	}

	trends := make(map[string]Trend)
	if len(records) >= 2 {
		trends["humidity"] = calculateTrend(humidity, current.Humidity)
		trends["light"] = calculateTrend(light, current.Light)
		trends["temperature"] = calculateTrend(temperature, current.Temperature)
	}

	total := len(records)
	alertPercent := 0.0
	if total > 0 {
		alertPercent = round1(float64(alertCount) / float64(total) * 100)
	}

	spanDays := 1
	if total > 1 {
		span := records[0].Timestamp.Sub(records[total-1].Timestamp)
		if days := int(span.Hours() / 24); days > 0 {
			spanDays = days
		}
	}

	summary := HistorySummary{
		HasHistory:    true,
		Recent:        snapshots,
		Trends:        trends,
		TotalAnalyses: total,
		AlertCount:    alertCount,
		AlertPercent:  alertPercent,
		LastAlert:     lastAlert,
		TimeSpanDays:  spanDays,
		Averages: Averages{
			Humidity:    round2(mean(humidity)),
			Light:       round2(mean(light)),
			Temperature: round2(mean(temperature)),
		},
	}

	slog.Debug("HISTORY: Retrieved", "plant_id", plantID, "analyses", total, "alerts", alertCount)
	return summary
}

// calculateTrend compares a current value against the mean of its historical
// values. Stable whenever the percent change is under the threshold,
// regardless of sign; otherwise the sign of the absolute change decides.
func calculateTrend(values []float64, current float64) Trend {
	avg := mean(values)
	change := current - avg

	changePercent := 0.0
	if avg != 0 {
		changePercent = change / avg * 100
	}

	direction := "stable"
	if math.Abs(changePercent) >= stableThresholdPercent {
		if change > 0 {
			direction = "increasing"
		} else {
			direction = "decreasing"
		}
	}

	return Trend{
		Direction:         direction,
		Change:            round2(change),
		ChangePercent:     round2(changePercent),
		AverageHistorical: round2(avg),
		Period:            fmt.Sprintf("%d analyses", len(values)),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
