// Package scenario selects slot subsets for simulated demand events. The
// engine only picks ids; deciding what status to apply to them stays with
// the caller, so selection policy and mutation policy remain independent.
package scenario

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"parking_twin/internal/grid"
)

// Scenario kinds.
const (
	Rush      = "rush"
	Festival  = "festival"
	Emergency = "emergency"
)

// intensity clamp range per kind
var bounds = map[string][2]float64{
	Rush:      {0.2, 1.0},
	Festival:  {0.1, 0.6},
	Emergency: {0.05, 0.3},
}

// Selection is the outcome of a scenario draw. OK is false for an unknown
// kind; that is a normal noop outcome, not an error.
type Selection struct {
	OK   bool
	Mode string
	IDs  []string
}

// Engine draws slot subsets from an injected random source so tests can seed
// it deterministically.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine backed by src, falling back to a time-seeded
// source when src is nil.
func NewEngine(src rand.Source) *Engine {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Engine{rng: rand.New(src)}
}

// Select picks max(1, floor(len(universe) * clamped-intensity)) distinct ids
// uniformly at random without replacement. The order of the returned ids is
// not significant.
func (e *Engine) Select(kind string, intensity float64, universe []string) Selection {
	b, ok := bounds[kind]
	if !ok {
		return Selection{}
	}

	clamped := math.Max(b[0], math.Min(intensity, b[1]))
	count := int(math.Floor(float64(len(universe)) * clamped))
	if count < 1 {
		count = 1
	}
	if count > len(universe) {
		count = len(universe)
	}

	e.mu.Lock()
	perm := e.rng.Perm(len(universe))
	e.mu.Unlock()

	ids := make([]string, 0, count)
	for _, idx := range perm[:count] {
		ids = append(ids, universe[idx])
	}
	return Selection{OK: true, Mode: kind, IDs: ids}
}

// TargetStatus maps a scenario kind onto the status the caller applies:
// rush and festival occupy slots, an emergency takes them out of service.
func TargetStatus(kind string) grid.Status {
	if kind == Emergency {
		return grid.StatusUnavailable
	}
	return grid.StatusOccupied
}
