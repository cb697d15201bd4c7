package carmen

import "errors"

var (
	// ErrUnknownSpecies means a reading's plant_type has no catalog entry.
	// The run is aborted: without reference data the comparisons are meaningless.
	ErrUnknownSpecies = errors.New("unknown plant species")

	// ErrEngineNotReady means no reasoning engine was wired into the pipeline.
	// Checked at entry, before any comparator runs.
	ErrEngineNotReady = errors.New("reasoning engine is not ready")

	// ErrStoreUnavailable means the backing analysis store cannot be reached.
	ErrStoreUnavailable = errors.New("analysis store unavailable")
)
