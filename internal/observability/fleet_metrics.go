package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBatchesDispatched = "hackfang.batches.dispatched"
	metricThreadsLaunched   = "hackfang.threads.launched"
	metricIncidents         = "hackfang.incidents.total"
	metricTickDuration      = "hackfang.tick.duration.seconds"
	metricFreeRAM           = "hackfang.ram.free.gb"
	metricTargets           = "hackfang.targets"

	attrShape = "shape"
	attrKind  = "kind"
	attrPhase = "phase"
)

// tickBucketBoundaries covers sub-millisecond compute-only ticks up to ticks
// dominated by slow host API calls.
var tickBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// FleetMetrics holds the OTel instruments for the orchestrator loop.
type FleetMetrics struct {
	batchesDispatched metric.Int64Counter
	threadsLaunched   metric.Int64Counter
	incidents         metric.Int64Counter
	tickDuration      metric.Float64Histogram
	freeRAM           metric.Float64Gauge
	targets           metric.Int64Gauge
}

// NewFleetMetrics creates the fleet instruments from the given meter.
func NewFleetMetrics(mt metric.Meter) (*FleetMetrics, error) {
	b := newMetricBuilder(mt)

	fm := &FleetMetrics{
		batchesDispatched: b.counter(metricBatchesDispatched, "Batches dispatched, by shape", "{batch}"),
		threadsLaunched:   b.counter(metricThreadsLaunched, "Worker threads launched, by kind", "{thread}"),
		incidents:         b.counter(metricIncidents, "Diagnostic incidents recorded, by kind", "{incident}"),
		tickDuration:      b.histogram(metricTickDuration, "Scheduler tick duration in seconds", "s", tickBucketBoundaries...),
		freeRAM:           b.floatGauge(metricFreeRAM, "Schedulable RAM left after dispatch", "GBy"),
		targets:           b.intGauge(metricTargets, "Tracked targets, by phase", "{target}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return fm, nil
}

// RecordBatch records one dispatched batch of the given shape.
func (fm *FleetMetrics) RecordBatch(ctx context.Context, shape string) {
	fm.batchesDispatched.Add(ctx, 1, metric.WithAttributes(attribute.String(attrShape, shape)))
}

// RecordThreads records launched worker threads of the given kind.
func (fm *FleetMetrics) RecordThreads(ctx context.Context, kind string, threads int) {
	if threads <= 0 {
		return
	}

	fm.threadsLaunched.Add(ctx, int64(threads), metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordIncident records one diagnostic incident of the given kind.
func (fm *FleetMetrics) RecordIncident(ctx context.Context, kind string) {
	fm.incidents.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordTick records a completed tick's duration and residual free RAM.
func (fm *FleetMetrics) RecordTick(ctx context.Context, duration time.Duration, freeRAM float64) {
	fm.tickDuration.Record(ctx, duration.Seconds())
	fm.freeRAM.Record(ctx, freeRAM)
}

// RecordTargets records the per-phase target gauge.
func (fm *FleetMetrics) RecordTargets(ctx context.Context, phase string, count int) {
	fm.targets.Record(ctx, int64(count), metric.WithAttributes(attribute.String(attrPhase, phase)))
}
