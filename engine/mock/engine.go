// Package mock provides a canned reasoning engine for tests and local
// development without a model server.
package mock

import (
	"context"
	"sync"
)

// Engine replays configured responses in order. Safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

// NewEngine returns an engine that replays the given responses. After the
// last one it keeps returning the final response.
func NewEngine(responses ...string) *Engine {
	return &Engine{responses: responses}
}

// NewEngineWithError returns an engine whose Generate always fails.
func NewEngineWithError(err error) *Engine {
	return &Engine{err: err}
}

// Generate returns the next canned response.
func (e *Engine) Generate(ctx context.Context, prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return "", e.err
	}
	if len(e.responses) == 0 {
		return `{"status": "OK", "message": "Conditions look fine.", "action": "No action needed"}`, nil
	}

	idx := e.calls
	if idx >= len(e.responses) {
		idx = len(e.responses) - 1
	}
	e.calls++
	return e.responses[idx], nil
}

// Calls reports how many times Generate was invoked.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
