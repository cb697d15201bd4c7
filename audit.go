package carmen

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// AuditLogger is the interface for per-run pipeline audit logging. It is a
// diagnostic side channel: audit failures never affect a run's outcome.
type AuditLogger interface {
	LogRun(entry RunLog) error
}

// NewAuditLogFilePath returns a file path keyed by the model name or id so
// logs produced with different models are easy to tell apart.
func NewAuditLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// RunLog captures one pipeline run end to end: what was asked of the engine,
// what came back, and what the caller ultimately received.
type RunLog struct {
	PlantID     string    `json:"plant_id"`
	Timestamp   time.Time `json:"timestamp"`
	Prompt      string    `json:"prompt,omitempty"`
	RawOutput   string    `json:"raw_output,omitempty"`
	Result      Result    `json:"result"`
	HistoryUsed bool      `json:"history_used"`
	HistoryErr  string    `json:"history_error,omitempty"`
	PersistErr  string    `json:"persist_error,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// FileAuditLogger logs to a file, accumulating runs and flushing at the end.
type FileAuditLogger struct {
	runs   []RunLog
	writer io.Writer
}

// NewFileAuditLogger creates a new file-based audit logger.
func NewFileAuditLogger(writer io.Writer) *FileAuditLogger {
	return &FileAuditLogger{
		runs:   make([]RunLog, 0),
		writer: writer,
	}
}

// LogRun appends a run to the buffer (does not flush immediately).
func (fal *FileAuditLogger) LogRun(entry RunLog) error {
	fal.runs = append(fal.runs, entry)
	return nil
}

// Flush flushes all accumulated runs to the writer.
func (fal *FileAuditLogger) Flush() error {
	if fal.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"analysis_session": map[string]any{
			"timestamp": time.Now(),
			"runs":      fal.runs,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log: %w", err)
	}

	if _, err := fal.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	// Clear the buffer after successful write
	fal.runs = fal.runs[:0]
	return nil
}

// NoOpAuditLogger discards all log entries.
type NoOpAuditLogger struct{}

// NewNoOpAuditLogger creates a new no-op audit logger.
func NewNoOpAuditLogger() *NoOpAuditLogger {
	return &NoOpAuditLogger{}
}

// LogRun discards the run log (no-op).
func (nop *NoOpAuditLogger) LogRun(entry RunLog) error {
	return nil
}

// StdoutAuditLogger logs each run as a JSON line to stdout.
type StdoutAuditLogger struct{}

// NewStdoutAuditLogger creates a new stdout-based audit logger.
func NewStdoutAuditLogger() *StdoutAuditLogger {
	return &StdoutAuditLogger{}
}

// LogRun writes the run as a JSON line to os.Stdout.
func (l *StdoutAuditLogger) LogRun(entry RunLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
