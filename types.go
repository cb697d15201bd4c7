package carmen

import (
	"context"
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ReasoningEngine is the natural-language reasoning boundary. It takes a fully
// assembled prompt and returns the engine's raw textual output, which is not
// guaranteed to be well-formed JSON.
type ReasoningEngine interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier delivers an out-of-band message (chat webhook, email, ...).
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// Status is the closed set of analysis statuses.
type Status string

const (
	StatusOK    Status = "OK"
	StatusAlert Status = "ALERT"
)

// Reading is one set of sensor values for a tracked plant. Immutable input to
// a single pipeline run.
type Reading struct {
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	Temperature float64 `json:"temperature"`
	PlantID     string  `json:"plant_id"`
	PlantType   string  `json:"plant_type"`
}

// Result is the pipeline's caller-facing output contract. It is always fully
// populated; the normalizer guarantees no field is ever left empty.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// AnalysisRecord is the persisted form of one completed run. Records are
// append-only; nothing in the pipeline updates or deletes them.
type AnalysisRecord struct {
	ID          int64     `json:"id"`
	PlantID     string    `json:"plant_id"`
	Timestamp   time.Time `json:"timestamp"`
	Humidity    float64   `json:"humidity"`
	Light       float64   `json:"light"`
	Temperature float64   `json:"temperature"`
	Comparisons string    `json:"comparisons"` // serialized verdict map
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Action      string    `json:"action"`
}

// AnalysisStore is the persistence gateway consulted by the trend analyzer and
// written by the orchestrator.
type AnalysisStore interface {
	// FetchRecent returns up to limit records for plantID, newest first.
	FetchRecent(ctx context.Context, plantID string, limit int) ([]AnalysisRecord, error)
	// Append stores a record and returns it with its assigned id.
	Append(ctx context.Context, rec AnalysisRecord) (AnalysisRecord, error)
	// List returns records for plantID newest first with limit/offset paging.
	List(ctx context.Context, plantID string, limit, offset int) ([]AnalysisRecord, error)
	// ListAll returns records across all plants newest first with limit/offset paging.
	ListAll(ctx context.Context, limit, offset int) ([]AnalysisRecord, error)
}
