package ingest

import (
	"context"
	"errors"
	"testing"

	should "github.com/stretchr/testify/assert"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/pipeline"
)

type fakeRunner struct {
	readings []carmen.Reading
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, reading carmen.Reading, opts ...pipeline.RunOption) (*pipeline.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.readings = append(f.readings, reading)
	return &pipeline.Outcome{
		Result: carmen.Result{Status: carmen.StatusOK, Message: "fine", Action: "none"},
	}, nil
}

func TestHandleMessage(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSource(nil, "carmen/readings/+", runner)

	payload := []byte(`{"plant_id": "basil-001", "plant_type": "basil", "humidity": 60, "light": 1200, "temperature": 22}`)
	s.handleMessage(context.Background(), payload)

	should.Len(t, runner.readings, 1)
	should.Equal(t, "basil-001", runner.readings[0].PlantID)
	should.Equal(t, 60.0, runner.readings[0].Humidity)
}

func TestHandleMessage_DropsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not JSON", payload: "humidity=60"},
		{name: "missing plant_id", payload: `{"plant_type": "basil", "humidity": 60}`},
		{name: "missing plant_type", payload: `{"plant_id": "basil-001", "humidity": 60}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := NewSource(nil, "carmen/readings/+", runner)
			s.handleMessage(context.Background(), []byte(tt.payload))
			should.Empty(t, runner.readings)
		})
	}
}

func TestHandleMessage_RunFailureDoesNotPanic(t *testing.T) {
	runner := &fakeRunner{err: errors.New("engine down")}
	s := NewSource(nil, "carmen/readings/+", runner)

	should.NotPanics(t, func() {
		s.handleMessage(context.Background(), []byte(`{"plant_id": "basil-001", "plant_type": "basil"}`))
	})
}
