package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricMutationsTotal           = "parking_twin_slot_mutations_total"
	MetricBroadcastsTotal          = "parking_twin_broadcast_messages_total"
	MetricPersistenceFailuresTotal = "parking_twin_persistence_failures_total"
	MetricScenarioRunsTotal        = "parking_twin_scenario_runs_total"
	MetricOccupancyRatio           = "parking_twin_occupancy_ratio"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	MutationsTotal           metric.Int64Counter
	BroadcastsTotal          metric.Int64Counter
	PersistenceFailuresTotal metric.Int64Counter
	ScenarioRunsTotal        metric.Int64Counter
	OccupancyRatio           metric.Float64ObservableGauge

	// State for the occupancy observable gauge, keyed by zone
	// ("all" covers the whole lot)
	mu           sync.RWMutex
	occupancyMap map[string]float64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			occupancyMap: make(map[string]float64),
		}
		// Initialization of instruments happens in InitMetrics
	})
	return globalMetrics
}

// InitMetrics creates the instruments on the given meter
func (h *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	if h.MutationsTotal, err = meter.Int64Counter(MetricMutationsTotal,
		metric.WithDescription("Total number of committed slot mutations")); err != nil {
		return err
	}
	if h.BroadcastsTotal, err = meter.Int64Counter(MetricBroadcastsTotal,
		metric.WithDescription("Total number of messages handed to the broadcast hub")); err != nil {
		return err
	}
	if h.PersistenceFailuresTotal, err = meter.Int64Counter(MetricPersistenceFailuresTotal,
		metric.WithDescription("Total number of durable writes that failed after an in-memory commit")); err != nil {
		return err
	}
	if h.ScenarioRunsTotal, err = meter.Int64Counter(MetricScenarioRunsTotal,
		metric.WithDescription("Total number of scenario applications")); err != nil {
		return err
	}

	h.OccupancyRatio, err = meter.Float64ObservableGauge(MetricOccupancyRatio,
		metric.WithDescription("Current occupancy ratio, by zone"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			h.mu.RLock()
			defer h.mu.RUnlock()
			for zone, ratio := range h.occupancyMap {
				o.Observe(ratio, metric.WithAttributes(attribute.String("zone", zone)))
			}
			return nil
		}))
	return err
}

// RecordMutation counts one committed mutation, labeled by its source
// ("edit" or "scenario").
func (h *MetricsHolder) RecordMutation(ctx context.Context, source string) {
	if h.MutationsTotal != nil {
		h.MutationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

// RecordBroadcast counts one message handed to the hub, labeled by type.
func (h *MetricsHolder) RecordBroadcast(ctx context.Context, msgType string) {
	if h.BroadcastsTotal != nil {
		h.BroadcastsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
	}
}

// RecordPersistenceFailure counts one failed durable write.
func (h *MetricsHolder) RecordPersistenceFailure(ctx context.Context) {
	if h.PersistenceFailuresTotal != nil {
		h.PersistenceFailuresTotal.Add(ctx, 1)
	}
}

// RecordScenarioRun counts one applied scenario, labeled by mode.
func (h *MetricsHolder) RecordScenarioRun(ctx context.Context, mode string) {
	if h.ScenarioRunsTotal != nil {
		h.ScenarioRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// SetOccupancy updates the observed occupancy ratio for a zone.
func (h *MetricsHolder) SetOccupancy(zone string, ratio float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.occupancyMap[zone] = ratio
}
