package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntoineSierzputowski/carmen"
)

// InstrumentedPipeline wraps a Pipeline with tracing and metrics for every
// run, including the degradation paths.
type InstrumentedPipeline struct {
	inner  *Pipeline
	tracer trace.Tracer
	meter  metric.Meter
}

// NewInstrumentedPipeline initializes a new instrumented pipeline.
func NewInstrumentedPipeline(inner *Pipeline, tracer trace.Tracer, meter metric.Meter) *InstrumentedPipeline {
	return &InstrumentedPipeline{
		inner:  inner,
		tracer: tracer,
		meter:  meter,
	}
}

// Run executes one pipeline run with full instrumentation.
func (ip *InstrumentedPipeline) Run(ctx context.Context, reading carmen.Reading, opts ...RunOption) (*Outcome, error) {
	ctx, span := ip.tracer.Start(ctx, "InstrumentedPipeline.Run", trace.WithAttributes(
		attribute.String("plant.id", reading.PlantID),
		attribute.String("plant.type", reading.PlantType),
	))
	defer span.End()

	runsCounter, _ := ip.meter.Int64Counter("analysis_runs_total",
		metric.WithDescription("Total number of analysis runs started"))
	runsCompletedCounter, _ := ip.meter.Int64Counter("analysis_runs_completed_total",
		metric.WithDescription("Total number of analysis runs completed successfully"))
	runsFailedCounter, _ := ip.meter.Int64Counter("analysis_runs_failed_total",
		metric.WithDescription("Total number of analysis runs that failed"))
	alertsCounter, _ := ip.meter.Int64Counter("analysis_alerts_total",
		metric.WithDescription("Total number of runs that produced an ALERT result"))
	historyDegradedCounter, _ := ip.meter.Int64Counter("history_degraded_total",
		metric.WithDescription("Total number of runs where history retrieval degraded"))
	persistFailuresCounter, _ := ip.meter.Int64Counter("persist_failures_total",
		metric.WithDescription("Total number of runs where the persistence write failed"))

	rawOutputLengthGauge, _ := ip.meter.Int64Gauge("engine_output_length",
		metric.WithDescription("Length of the raw reasoning engine output"))
	historyWindowGauge, _ := ip.meter.Int64Gauge("history_records_used",
		metric.WithDescription("Number of historical records consulted in the latest run"))

	runDurationHist, _ := ip.meter.Float64Histogram("analysis_run_duration_seconds",
		metric.WithDescription("Total duration of one analysis run in seconds"))

	runsCounter.Add(ctx, 1)
	start := time.Now()

	outcome, err := ip.inner.Run(ctx, reading, opts...)

	runDurationHist.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		runsFailedCounter.Add(ctx, 1)
		span.SetStatus(codes.Error, "Run failed")
		span.RecordError(err)
		return nil, err
	}

	runsCompletedCounter.Add(ctx, 1)
	rawOutputLengthGauge.Record(ctx, int64(len(outcome.RawOutput)))
	historyWindowGauge.Record(ctx, int64(outcome.History.TotalAnalyses))

	if outcome.Result.Status == carmen.StatusAlert {
		alertsCounter.Add(ctx, 1)
	}
	if outcome.History.Degraded() {
		historyDegradedCounter.Add(ctx, 1)
	}
	if outcome.Persistence == PersistFailed {
		persistFailuresCounter.Add(ctx, 1)
	}

	span.SetAttributes(
		attribute.String("result.status", string(outcome.Result.Status)),
		attribute.Bool("history.used", outcome.History.HasHistory),
		attribute.String("persistence.state", string(outcome.Persistence)),
	)

	return outcome, nil
}
