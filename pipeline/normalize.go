package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AntoineSierzputowski/carmen"
)

// The reasoning engine's output has only a soft JSON contract. Normalize makes
// the boundary between free text and the typed result total: it never fails,
// degrading through an ordered chain of parse strategies instead.

// parseStrategy attempts to turn raw engine output into a candidate field map.
// A strategy either produces a candidate or passes to the next one.
type parseStrategy func(raw string) (map[string]any, bool)

// parseChain is ordered most-structured first. The last strategy always
// matches, so the chain is total.
var parseChain = []parseStrategy{
	extractBracedJSON,
	verbatimFallback,
}

// Normalize converts raw reasoning-engine output into a fully populated
// Result. It never returns an error and never panics, whatever the input.
func Normalize(raw string) carmen.Result {
	var candidate map[string]any
	for _, strategy := range parseChain {
		if c, ok := strategy(raw); ok {
			candidate = c
			break
		}
	}

	status := carmen.StatusOK
	if s, ok := candidate["status"].(string); ok {
		if strings.ToUpper(strings.TrimSpace(s)) == string(carmen.StatusAlert) {
			status = carmen.StatusAlert
		}
	}

	message := "Analysis completed"
	switch m := candidate["message"].(type) {
	case string:
		if m != "" {
			message = m
		}
	case nil:
	default:
		message = fmt.Sprintf("%v", m)
	}

	return carmen.Result{
		Status:  status,
		Message: message,
		Action:  coerceAction(candidate["action"]),
	}
}

// extractBracedJSON takes the substring from the first '{' to the last '}'
// and attempts to decode it as a JSON object.
func extractBracedJSON(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || end < start {
		return nil, false
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		slog.Warn("NORMALIZER: Could not parse JSON from engine output", "error", err)
		return nil, false
	}
	return decoded, true
}

// verbatimFallback synthesizes a candidate carrying the raw text as message.
// Always matches; terminates the chain.
func verbatimFallback(raw string) (map[string]any, bool) {
	slog.Warn("NORMALIZER: Engine output does not contain JSON, using verbatim fallback")
	return map[string]any{
		"status":  string(carmen.StatusOK),
		"message": raw,
		"action":  "none",
	}, true
}

// coerceAction turns whatever shape the engine produced for "action" into a
// single descriptive sentence.
func coerceAction(value any) string {
	var action string

	switch v := value.(type) {
	case nil:
		action = "No action needed"
	case []any:
		action = joinActions(v)
	case string:
		action = v
	default:
		action = fmt.Sprintf("%v", v)
	}

	action = strings.TrimSpace(action)

	// Strip one layer of double quotes, then one layer of single quotes.
	if len(action) >= 2 && strings.HasPrefix(action, `"`) && strings.HasSuffix(action, `"`) {
		action = action[1 : len(action)-1]
	}
	if len(action) >= 2 && strings.HasPrefix(action, "'") && strings.HasSuffix(action, "'") {
		action = action[1 : len(action)-1]
	}

	// A stringified list (e.g. "['water', 'light']") gets the same treatment
	// as a real one. Parse failures leave the string unchanged.
	if strings.HasPrefix(action, "[") && strings.HasSuffix(action, "]") {
		if items, ok := parseListLiteral(action); ok {
			action = joinActions(items)
		}
	}

	if action == "" {
		action = "No action needed"
	}
	return action
}

// joinActions renders a list of actions as one sentence.
func joinActions(items []any) string {
	switch len(items) {
	case 0:
		return "No action needed"
	case 1:
		return fmt.Sprintf("Take action: %s", renderItem(items[0]))
	default:
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, renderItem(it))
		}
		head := strings.Join(parts[:len(parts)-1], ", ")
		return fmt.Sprintf("Take multiple actions: %s and %s", head, parts[len(parts)-1])
	}
}

func renderItem(item any) string {
	if s, ok := item.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", item)
}

// parseListLiteral decodes a bracketed list literal, accepting both JSON and
// single-quoted forms.
func parseListLiteral(s string) ([]any, bool) {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		return items, true
	}

	// Second chance for single-quoted lists. Good enough for what the engine
	// actually emits; anything stranger stays a plain string.
	requoted := strings.ReplaceAll(s, "'", `"`)
	if err := json.Unmarshal([]byte(requoted), &items); err == nil {
		return items, true
	}
	return nil, false
}
