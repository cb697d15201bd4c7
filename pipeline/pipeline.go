// Package pipeline implements the analysis pipeline: deterministic metric
// comparisons against the species catalog, historical trend computation,
// reasoning-engine consultation, and normalization of its free-form output
// into the typed result contract.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/catalog"
)

// Runner is the single entry point contract of the pipeline. Both the plain
// and the instrumented pipeline satisfy it.
type Runner interface {
	Run(ctx context.Context, reading carmen.Reading, opts ...RunOption) (*Outcome, error)
}

// PersistState distinguishes how the best-effort persistence step ended.
type PersistState string

const (
	PersistOK      PersistState = "persisted"
	PersistFailed  PersistState = "failed"
	PersistSkipped PersistState = "skipped" // no store configured
)

// Outcome is the full account of one run. Result is the sole caller-facing
// contract; the remaining fields expose the degradation paths explicitly so
// callers and tests never have to scrape logs.
type Outcome struct {
	Result  carmen.Result
	Record  carmen.AnalysisRecord // populated when persistence succeeded
	History HistorySummary

	Persistence PersistState
	PersistErr  error

	RawOutput string
}

// Pipeline sequences one run: comparators, trend analyzer, reasoning engine,
// normalizer, persistence. All collaborators are injected at construction;
// their lifecycles belong to the process entry point.
type Pipeline struct {
	engine  carmen.ReasoningEngine
	store   carmen.AnalysisStore
	catalog *catalog.Catalog
	audit   carmen.AuditLogger
	window  int
	now     func() time.Time
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithHistoryWindow overrides the trend analyzer's fetch window.
func WithHistoryWindow(n int) Option {
	return func(p *Pipeline) { p.window = n }
}

// WithClock overrides the persistence timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a pipeline. The store may be nil (history degrades, persistence
// is skipped); the engine may be nil only to surface ErrEngineNotReady at run
// time rather than at wiring time.
func New(engine carmen.ReasoningEngine, store carmen.AnalysisStore, cat *catalog.Catalog, audit carmen.AuditLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:  engine,
		store:   store,
		catalog: cat,
		audit:   audit,
		window:  DefaultHistoryWindow,
		now:     time.Now,
	}
	if p.audit == nil {
		p.audit = carmen.NewNoOpAuditLogger()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	timestamp *time.Time
}

// WithTimestamp makes the persisted record carry the given timestamp instead
// of the current time. Used to synthesize back-dated history when exercising
// trend behavior.
func WithTimestamp(t time.Time) RunOption {
	return func(rc *runConfig) { rc.timestamp = &t }
}

// Run executes the full pipeline for one reading.
//
// Failure policy: failures before the engine call (unknown species, engine
// not ready) abort the run; failures at or after it (history retrieval,
// malformed output, persistence) degrade it, because a degraded answer beats
// no answer.
func (p *Pipeline) Run(ctx context.Context, reading carmen.Reading, opts ...RunOption) (*Outcome, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}

	if p.engine == nil {
		return nil, carmen.ErrEngineNotReady
	}

	state := NewWorkingState(reading)
	slog.Debug("PIPELINE: Starting run", "plant_id", reading.PlantID, "plant_type", reading.PlantType)

	// Comparators run in a fixed order. Any failure here means the reference
	// data is unusable and the run has no valid premise.
	soil, err := CompareSoilMoisture(p.catalog, reading.PlantType, reading.Humidity)
	if err != nil {
		return nil, fmt.Errorf("soil moisture comparison: %w", err)
	}
	state.Comparisons[ParamSoilMoisture] = soil

	temp, err := CompareTemperature(p.catalog, reading.PlantType, reading.Temperature)
	if err != nil {
		return nil, fmt.Errorf("temperature comparison: %w", err)
	}
	state.Comparisons[ParamTemperature] = temp

	light, err := CompareLight(p.catalog, reading.PlantType, reading.Light)
	if err != nil {
		return nil, fmt.Errorf("light comparison: %w", err)
	}
	state.Comparisons[ParamLight] = light

	// History never fails the run.
	state.History = AnalyzeHistory(ctx, p.store, reading.PlantID, reading, p.window)

	prompt := BuildPrompt(state)

	raw, err := p.engine.Generate(ctx, prompt)
	if err != nil {
		p.logRun(carmen.RunLog{
			PlantID:   reading.PlantID,
			Timestamp: p.now(),
			Prompt:    prompt,
			Error:     err.Error(),
		})
		return nil, fmt.Errorf("failed to invoke reasoning engine: %w", err)
	}

	result := Normalize(raw)

	outcome := &Outcome{
		Result:    result,
		History:   state.History,
		RawOutput: raw,
	}

	p.persist(ctx, state, result, rc.timestamp, outcome)

	entry := carmen.RunLog{
		PlantID:     reading.PlantID,
		Timestamp:   p.now(),
		Prompt:      prompt,
		RawOutput:   raw,
		Result:      result,
		HistoryUsed: state.History.HasHistory,
	}
	if state.History.Degraded() {
		entry.HistoryErr = state.History.Note
	}
	if outcome.PersistErr != nil {
		entry.PersistErr = outcome.PersistErr.Error()
	}
	p.logRun(entry)

	slog.Info("PIPELINE: Run completed",
		"plant_id", reading.PlantID,
		"status", result.Status,
		"comparator_alert", state.AnyAlert(),
		"history_used", state.History.HasHistory,
		"persistence", outcome.Persistence,
	)

	return outcome, nil
}

// persist writes the run's record best-effort: a failure is recorded on the
// outcome and logged but never surfaced to the caller.
func (p *Pipeline) persist(ctx context.Context, state *WorkingState, result carmen.Result, override *time.Time, outcome *Outcome) {
	if p.store == nil {
		outcome.Persistence = PersistSkipped
		return
	}

	ts := p.now()
	if override != nil {
		ts = *override
	}

	comparisons, err := json.Marshal(state.Comparisons)
	if err != nil {
		outcome.Persistence = PersistFailed
		outcome.PersistErr = fmt.Errorf("failed to serialize comparisons: %w", err)
		slog.Error("PIPELINE: Failed to serialize comparisons", "plant_id", state.Reading.PlantID, "error", err)
		return
	}

	rec := carmen.AnalysisRecord{
		PlantID:     state.Reading.PlantID,
		Timestamp:   ts,
		Humidity:    state.Reading.Humidity,
		Light:       state.Reading.Light,
		Temperature: state.Reading.Temperature,
		Comparisons: string(comparisons),
		Status:      result.Status,
		Message:     result.Message,
		Action:      result.Action,
	}

	stored, err := p.store.Append(ctx, rec)
	if err != nil {
		outcome.Persistence = PersistFailed
		outcome.PersistErr = err
		slog.Error("PIPELINE: Failed to save analysis", "plant_id", state.Reading.PlantID, "error", err)
		return
	}

	outcome.Persistence = PersistOK
	outcome.Record = stored
	slog.Debug("PIPELINE: Analysis saved", "plant_id", state.Reading.PlantID, "record_id", stored.ID)
}

// logRun logs a run using the configured audit logger, handling errors
// gracefully.
func (p *Pipeline) logRun(entry carmen.RunLog) {
	if err := p.audit.LogRun(entry); err != nil {
		slog.Error("Failed to write audit log entry", "error", err, "plant_id", entry.PlantID)
	}
}
