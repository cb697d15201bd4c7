package pipeline_test

import (
	"testing"

	should "github.com/stretchr/testify/assert"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/pipeline"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want carmen.Result
	}{
		{
			name: "clean JSON",
			raw:  `{"status": "ALERT", "message": "Soil too dry", "action": "water the plant"}`,
			want: carmen.Result{Status: carmen.StatusAlert, Message: "Soil too dry", Action: "water the plant"},
		},
		{
			name: "JSON embedded in prose",
			raw:  "Here is my analysis:\n{\"status\": \"OK\", \"message\": \"All good\", \"action\": \"none\"}\nHope this helps!",
			want: carmen.Result{Status: carmen.StatusOK, Message: "All good", Action: "none"},
		},
		{
			name: "lowercase status treated as given",
			raw:  `{"status": " alert ", "message": "hot", "action": "shade"}`,
			want: carmen.Result{Status: carmen.StatusAlert, Message: "hot", Action: "shade"},
		},
		{
			name: "unknown status defaults to OK",
			raw:  `{"status": "WARNING", "message": "hmm", "action": "wait"}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "hmm", Action: "wait"},
		},
		{
			name: "no JSON at all falls back to verbatim",
			raw:  "The plant looks perfectly healthy to me.",
			want: carmen.Result{Status: carmen.StatusOK, Message: "The plant looks perfectly healthy to me.", Action: "none"},
		},
		{
			name: "empty string",
			raw:  "",
			want: carmen.Result{Status: carmen.StatusOK, Message: "Analysis completed", Action: "none"},
		},
		{
			name: "malformed braces fall back to verbatim",
			raw:  "{status: broken",
			want: carmen.Result{Status: carmen.StatusOK, Message: "{status: broken", Action: "none"},
		},
		{
			name: "missing fields get defaults",
			raw:  `{"status": "OK"}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "Analysis completed", Action: "No action needed"},
		},
		{
			name: "empty action list",
			raw:  `{"status": "OK", "message": "fine", "action": []}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "fine", Action: "No action needed"},
		},
		{
			name: "single-item action list",
			raw:  `{"status": "ALERT", "message": "dry", "action": ["water"]}`,
			want: carmen.Result{Status: carmen.StatusAlert, Message: "dry", Action: "Take action: water"},
		},
		{
			name: "two-item action list",
			raw:  `{"status": "ALERT", "message": "dry and dark", "action": ["water", "move to light"]}`,
			want: carmen.Result{Status: carmen.StatusAlert, Message: "dry and dark", Action: "Take multiple actions: water and move to light"},
		},
		{
			name: "three-item action list",
			raw:  `{"status": "ALERT", "message": "bad", "action": ["water", "prune", "repot"]}`,
			want: carmen.Result{Status: carmen.StatusAlert, Message: "bad", Action: "Take multiple actions: water, prune and repot"},
		},
		{
			name: "stringified single-quoted list",
			raw:  `{"status": "ALERT", "message": "dry", "action": "['water', 'mist leaves']"}`,
			want: carmen.Result{Status: carmen.StatusAlert, Message: "dry", Action: "Take multiple actions: water and mist leaves"},
		},
		{
			name: "doubly quoted action",
			raw:  `{"status": "OK", "message": "fine", "action": "\"none\""}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "fine", Action: "none"},
		},
		{
			name: "single-quoted action",
			raw:  `{"status": "OK", "message": "fine", "action": "'keep watering schedule'"}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "fine", Action: "keep watering schedule"},
		},
		{
			name: "whitespace-only action",
			raw:  `{"status": "OK", "message": "fine", "action": "   "}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "fine", Action: "No action needed"},
		},
		{
			name: "numeric action stringified",
			raw:  `{"status": "OK", "message": "fine", "action": 42}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "fine", Action: "42"},
		},
		{
			name: "non-string message stringified",
			raw:  `{"status": "OK", "message": 7, "action": "none"}`,
			want: carmen.Result{Status: carmen.StatusOK, Message: "7", Action: "none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.Normalize(tt.raw)
			should.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_NeverPanics(t *testing.T) {
	inputs := []string{
		"{}",
		"}{",
		"{\"action\": {\"nested\": true}}",
		"null",
		"[1, 2, 3]",
		"{\"status\": null, \"message\": null, \"action\": null}",
	}
	for _, in := range inputs {
		should.NotPanics(t, func() {
			got := pipeline.Normalize(in)
			should.NotEmpty(t, got.Status)
			should.NotEmpty(t, got.Message)
			should.NotEmpty(t, got.Action)
		})
	}
}
