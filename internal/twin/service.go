// Package twin coordinates the grid, the persistence gateway and the live
// broadcast hub into the single authoritative mutation pipeline: validate,
// commit in memory, write through, broadcast.
package twin

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"parking_twin/internal/core"
	"parking_twin/internal/grid"
	"parking_twin/internal/pricing"
	"parking_twin/internal/scenario"
	"parking_twin/internal/store"
	"parking_twin/pkg/liveserver"
	"parking_twin/pkg/telemetry"
)

// Broadcaster is the sink for committed-change notifications. *liveserver.Hub
// satisfies it.
type Broadcaster interface {
	Broadcast(msg liveserver.Message)
}

// ScenarioResult reports which slots a scenario touched.
type ScenarioResult struct {
	Applied []string `json:"applied"`
	Mode    string   `json:"mode"`
}

// Service owns the mutation pipeline for one lot. A single mutex serializes
// commit, durable write and broadcast enqueue, so every subscriber observes
// changes in commit order. Reads go straight to the grid and never wait on
// the durable write.
type Service struct {
	grid      *grid.GridState
	store     store.Store
	hub       Broadcaster
	scenarios *scenario.Engine
	logger    core.ILogger

	mu sync.Mutex
}

// NewService wires the grid, store, hub and scenario engine together.
func NewService(g *grid.GridState, st store.Store, hub Broadcaster, engine *scenario.Engine, logger core.ILogger) *Service {
	return &Service{
		grid:      g,
		store:     st,
		hub:       hub,
		scenarios: engine,
		logger:    logger.WithField("component", "twin"),
	}
}

// Bootstrap loads persisted records into the grid, seeding and persisting a
// fresh layout when the store is empty. The store is never read again
// afterwards.
func (s *Service) Bootstrap(ctx context.Context, rng *rand.Rand) error {
	recs, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}

	if len(recs) == 0 {
		s.grid.Seed(rng)
		seeded := s.grid.Records()
		if err := s.store.UpsertMany(ctx, seeded); err != nil {
			return fmt.Errorf("persist seeded grid: %w", err)
		}
		s.logger.Info("Seeded new grid", "lot_id", s.grid.LotID(), "slots", len(seeded))
		return nil
	}

	s.grid.Load(recs)
	s.logger.Info("Loaded grid from store", "lot_id", s.grid.LotID(), "slots", len(recs))
	return nil
}

// LotID returns the managed lot's identifier.
func (s *Service) LotID() string {
	return s.grid.LotID()
}

// Snapshot returns the current full grid state.
func (s *Service) Snapshot() grid.Snapshot {
	return s.grid.Snapshot()
}

// Occupancy returns the occupied fraction, optionally filtered by zone.
func (s *Service) Occupancy(zone string) float64 {
	return s.grid.Occupancy(zone)
}

// Zones returns the lot's zone labels.
func (s *Service) Zones() []string {
	return s.grid.Zones()
}

// Prices recomputes the current price of every slot.
func (s *Service) Prices(now time.Time) map[string]float64 {
	return pricing.ComputePrices(s.grid.Snapshot(), now)
}

// SetSlotStatus applies a single-slot edit. The returned view reflects the
// committed state; persistence failures are logged and counted but do not
// fail the edit or suppress the broadcast.
func (s *Service) SetSlotStatus(ctx context.Context, slotID string, status grid.Status, price *float64) (grid.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.grid.SetStatus(slotID, status, price)
	if err != nil {
		return grid.View{}, err
	}

	telemetry.GetGlobalMetrics().RecordMutation(ctx, "edit")
	s.persist(ctx, rec)
	s.broadcastSlot(ctx, rec)
	return rec.View(), nil
}

// RunScenario selects a slot subset for the given kind and applies the
// matching status per slot. The second return is false for an unknown kind
// (a noop, not a failure). Bulk application is sequential per slot with no
// rollback; slots carry no cross-slot invariant.
func (s *Service) RunScenario(ctx context.Context, kind string, intensity float64) (ScenarioResult, bool) {
	sel := s.scenarios.Select(kind, intensity, s.grid.IDs())
	if !sel.OK {
		return ScenarioResult{}, false
	}

	target := scenario.TargetStatus(kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.grid.BulkUpdate(sel.IDs, &target, nil)
	if err != nil {
		// target comes from TargetStatus and is always a valid enum value
		s.logger.Error("Bulk update rejected", "mode", sel.Mode, "error", err)
		return ScenarioResult{}, false
	}

	if len(recs) > 0 {
		s.persist(ctx, recs...)
	}
	applied := make([]string, 0, len(recs))
	for _, rec := range recs {
		telemetry.GetGlobalMetrics().RecordMutation(ctx, "scenario")
		s.broadcastSlot(ctx, rec)
		applied = append(applied, rec.ID)
	}
	telemetry.GetGlobalMetrics().RecordScenarioRun(ctx, sel.Mode)

	s.logger.Info("Scenario applied", "mode", sel.Mode, "slots", len(applied), "intensity", intensity)
	return ScenarioResult{Applied: applied, Mode: sel.Mode}, true
}

// persist writes committed records through to the store. A failure leaves
// the in-memory commit in place: the next successful write rewrites the full
// record, so the divergence self-heals.
func (s *Service) persist(ctx context.Context, recs ...grid.Record) {
	var err error
	if len(recs) == 1 {
		err = s.store.Upsert(ctx, recs[0])
	} else {
		err = s.store.UpsertMany(ctx, recs)
	}
	if err != nil {
		s.logger.Error("Durable write failed", "slots", len(recs), "error", err)
		telemetry.GetGlobalMetrics().RecordPersistenceFailure(ctx)
	}
}

func (s *Service) broadcastSlot(ctx context.Context, rec grid.Record) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(liveserver.NewSlotUpdatedMessage(rec.View()))
	telemetry.GetGlobalMetrics().RecordBroadcast(ctx, liveserver.TypeSlotUpdated)
}
