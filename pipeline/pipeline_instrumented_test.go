package pipeline_test

import (
	"context"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/engine/mock"
	"github.com/AntoineSierzputowski/carmen/pipeline"
	"github.com/AntoineSierzputowski/carmen/store"
)

func newInstrumented(t *testing.T, inner *pipeline.Pipeline) *pipeline.InstrumentedPipeline {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return pipeline.NewInstrumentedPipeline(inner, tp.Tracer("test"), mp.Meter("test"))
}

func TestInstrumentedPipelineRun_PassesThrough(t *testing.T) {
	cat := newTestCatalog(t)
	ms := store.NewMemoryStore()
	engine := mock.NewEngine(`{"status": "ALERT", "message": "Too dry", "action": "water"}`)

	ip := newInstrumented(t, pipeline.New(engine, ms, cat, nil))

	outcome, err := ip.Run(context.Background(), healthyReading)
	must.NoError(t, err)
	should.Equal(t, carmen.StatusAlert, outcome.Result.Status)
	should.Equal(t, pipeline.PersistOK, outcome.Persistence)
	should.Equal(t, 1, ms.Len())
}

func TestInstrumentedPipelineRun_PropagatesErrors(t *testing.T) {
	cat := newTestCatalog(t)
	ip := newInstrumented(t, pipeline.New(nil, store.NewMemoryStore(), cat, nil))

	outcome, err := ip.Run(context.Background(), healthyReading)
	must.Error(t, err)
	should.ErrorIs(t, err, carmen.ErrEngineNotReady)
	should.Nil(t, outcome)
}
