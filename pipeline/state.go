package pipeline

import "github.com/AntoineSierzputowski/carmen"

// WorkingState is the per-run aggregate the orchestrator threads through the
// pipeline stages. Each run owns its own state; nothing is shared between
// concurrent runs.
type WorkingState struct {
	Reading     carmen.Reading
	Comparisons map[string]Verdict
	History     HistorySummary
}

// NewWorkingState builds the state for one run from an incoming reading.
func NewWorkingState(reading carmen.Reading) *WorkingState {
	return &WorkingState{
		Reading:     reading,
		Comparisons: make(map[string]Verdict, 3),
	}
}

// AnyAlert reports whether any comparator flagged the reading.
func (ws *WorkingState) AnyAlert() bool {
	for _, v := range ws.Comparisons {
		if v.Status == carmen.StatusAlert {
			return true
		}
	}
	return false
}
