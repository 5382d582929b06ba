// Package telemetry exposes the bridge's OTel instruments. The global meter
// is a no-op unless the host process installs a metric SDK, so recording is
// always safe.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dualcarla/bridge/pkg/core"
)

const instrumentationName = "github.com/dualcarla/bridge/internal/bridge"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the instruments recorded by the synchronizer loop.
type Metrics struct {
	stepDuration  metric.Float64Histogram
	activeCount   metric.Int64Gauge
	spawns        metric.Int64Counter
	spawnFailures metric.Int64Counter
	destroys      metric.Int64Counter
}

// New creates the bridge instruments on the global meter.
func New() (*Metrics, error) {
	m := meter()
	t := &Metrics{}

	var err error

	t.stepDuration, err = m.Float64Histogram(
		"bridge.step.duration",
		metric.WithDescription("Wall time of one full lockstep iteration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}

	t.activeCount, err = m.Int64Gauge(
		"bridge.vehicles.active",
		metric.WithDescription("Vehicles currently tracked in the registry"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active vehicle gauge: %w", err)
	}

	t.spawns, err = m.Int64Counter(
		"bridge.actors.spawned",
		metric.WithDescription("Total successful actor spawns"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawn counter: %w", err)
	}

	t.spawnFailures, err = m.Int64Counter(
		"bridge.actors.spawn_failures",
		metric.WithDescription("Total failed actor spawns (after z-bump retry)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawn failure counter: %w", err)
	}

	t.destroys, err = m.Int64Counter(
		"bridge.actors.destroyed",
		metric.WithDescription("Total actor destroys issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating destroy counter: %w", err)
	}

	return t, nil
}

func worldAttr(w core.World) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("world", w.String()))
}

// RecordStep records one completed lockstep iteration.
func (t *Metrics) RecordStep(ctx context.Context, d time.Duration, active int) {
	t.stepDuration.Record(ctx, d.Seconds())
	t.activeCount.Record(ctx, int64(active))
}

// RecordSpawn counts a successful spawn in world w.
func (t *Metrics) RecordSpawn(ctx context.Context, w core.World) {
	t.spawns.Add(ctx, 1, worldAttr(w))
}

// RecordSpawnFailure counts a spawn that failed both attempts in world w.
func (t *Metrics) RecordSpawnFailure(ctx context.Context, w core.World) {
	t.spawnFailures.Add(ctx, 1, worldAttr(w))
}

// RecordDestroy counts a destroy issued in world w.
func (t *Metrics) RecordDestroy(ctx context.Context, w core.World) {
	t.destroys.Add(ctx, 1, worldAttr(w))
}
