package grid

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	apperrors "parking_twin/pkg/errors"
)

// Snapshot is a full point-in-time copy of the grid. Slots are listed in
// row-major order.
type Snapshot struct {
	LotID string `json:"lot_id"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Slots []View `json:"slots"`
}

// GridState is the single source of truth for one lot. All mutating
// operations are atomic with respect to reads; reads never observe a
// partially applied mutation.
type GridState struct {
	lotID string
	rows  int
	cols  int

	mu    sync.RWMutex
	slots map[string]*Slot
	order []string // slot ids in row-major order, fixed after Seed/Load
}

// New creates an empty grid for one lot. Populate it with Seed or Load
// exactly once before serving.
func New(lotID string, rows, cols int) *GridState {
	return &GridState{
		lotID: lotID,
		rows:  rows,
		cols:  cols,
		slots: make(map[string]*Slot, rows*cols),
	}
}

// LotID returns the fixed lot identifier.
func (g *GridState) LotID() string {
	return g.lotID
}

// Dimensions returns the fixed grid size.
func (g *GridState) Dimensions() (rows, cols int) {
	return g.rows, g.cols
}

// Seed populates the grid with a fresh vacant layout. Zones alternate A/B by
// row; slot types are drawn from rng so a fixed seed reproduces the layout.
func (g *GridState) Seed(rng *rand.Rand) {
	zones := []string{"A", "B"}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.slots = make(map[string]*Slot, g.rows*g.cols)
	g.order = g.order[:0]
	now := time.Now().UTC()
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			id := slotID(r, c)
			slotType := TypeStandard
			if rng.Float64() < 0.15 {
				slotType = TypeEV
			} else if rng.Float64() < 0.25 {
				slotType = TypeAccessible
			}
			g.slots[id] = &Slot{
				ID:        id,
				Row:       r,
				Col:       c,
				Zone:      zones[r%len(zones)],
				Type:      slotType,
				Status:    StatusVacant,
				Price:     DefaultBasePrice,
				UpdatedAt: now,
			}
			g.order = append(g.order, id)
		}
	}
}

// Load replaces the grid contents with persisted records.
func (g *GridState) Load(records []Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.slots = make(map[string]*Slot, len(records))
	for _, rec := range records {
		g.slots[rec.ID] = slotFromRecord(rec)
	}
	g.order = make([]string, 0, len(g.slots))
	for id := range g.slots {
		g.order = append(g.order, id)
	}
	sort.Slice(g.order, func(i, j int) bool {
		a, b := g.slots[g.order[i]], g.slots[g.order[j]]
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
}

// Snapshot returns an immutable copy of all current slot data. Safe to call
// concurrently with any operation.
func (g *GridState) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	views := make([]View, 0, len(g.order))
	for _, id := range g.order {
		views = append(views, g.slots[id].record().View())
	}
	return Snapshot{LotID: g.lotID, Rows: g.rows, Cols: g.cols, Slots: views}
}

// Records returns the persistence projection of every slot, in row-major
// order. Used to write through a freshly seeded layout.
func (g *GridState) Records() []Record {
	g.mu.RLock()
	defer g.mu.RUnlock()

	recs := make([]Record, 0, len(g.order))
	for _, id := range g.order {
		recs = append(recs, g.slots[id].record())
	}
	return recs
}

// IDs returns every slot id in row-major order.
func (g *GridState) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Zones returns the distinct zone labels in sorted order.
func (g *GridState) Zones() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	var zones []string
	for _, s := range g.slots {
		if _, ok := seen[s.Zone]; !ok {
			seen[s.Zone] = struct{}{}
			zones = append(zones, s.Zone)
		}
	}
	sort.Strings(zones)
	return zones
}

// Occupancy returns the fraction of slots whose status is occupied,
// optionally restricted to one zone. An empty filtered set yields 0.
func (g *GridState) Occupancy(zone string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var total, occupied int
	for _, s := range g.slots {
		if zone != "" && s.Zone != zone {
			continue
		}
		total++
		if s.Status == StatusOccupied {
			occupied++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(occupied) / float64(total)
}

// SetStatus applies a single-slot edit atomically and returns the committed
// record. The slot is left untouched when validation fails.
func (g *GridState) SetStatus(slotID string, status Status, price *float64) (Record, error) {
	if !status.Valid() {
		return Record{}, apperrors.ErrInvalidStatus
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.slots[slotID]
	if !ok {
		return Record{}, apperrors.ErrSlotNotFound
	}
	slot.Status = status
	if price != nil {
		slot.Price = *price
	}
	slot.UpdatedAt = g.touch(slot)
	return slot.record(), nil
}

// BulkUpdate applies the same status/price to every listed id that exists.
// Unknown ids are silently skipped; the committed records are returned in
// input order. The whole batch runs under one critical section so no reader
// observes a half-applied batch, but it is not transactional: there is no
// rollback semantics across slots.
func (g *GridState) BulkUpdate(slotIDs []string, status *Status, price *float64) ([]Record, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	updated := make([]Record, 0, len(slotIDs))
	for _, id := range slotIDs {
		slot, ok := g.slots[id]
		if !ok {
			continue
		}
		if status != nil {
			slot.Status = *status
		}
		if price != nil {
			slot.Price = *price
		}
		slot.UpdatedAt = g.touch(slot)
		updated = append(updated, slot.record())
	}
	return updated, nil
}

// touch returns the new updatedAt for a mutated slot, keeping the per-slot
// timestamp monotonically non-decreasing even if the wall clock steps back.
func (g *GridState) touch(slot *Slot) time.Time {
	now := time.Now().UTC()
	if now.Before(slot.UpdatedAt) {
		return slot.UpdatedAt
	}
	return now
}

func slotID(row, col int) string {
	return fmt.Sprintf("S-%d-%d", row, col)
}
