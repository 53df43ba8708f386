package scenario

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_twin/internal/grid"
)

func universe(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("S-%d-%d", i/10, i%10)
	}
	return ids
}

func TestSelectCount(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	sel := e.Select(Rush, 0.6, universe(80))
	require.True(t, sel.OK)
	assert.Equal(t, Rush, sel.Mode)
	assert.Len(t, sel.IDs, 48) // floor(80 * 0.6)

	// Distinct ids
	seen := make(map[string]struct{})
	for _, id := range sel.IDs {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestSelectClampsIntensity(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	tests := []struct {
		kind      string
		intensity float64
		count     int
	}{
		{Rush, 5.0, 100},      // clamped to 1.0
		{Rush, 0.0, 20},       // clamped to 0.2
		{Rush, -3.0, 20},      // clamped to 0.2
		{Festival, 0.9, 60},   // clamped to 0.6
		{Festival, 0.05, 10},  // clamped to 0.1
		{Emergency, 0.9, 30},  // clamped to 0.3
		{Emergency, 0.001, 5}, // clamped to 0.05
		{Emergency, 0.1, 10},  // within range
	}
	for _, tt := range tests {
		sel := e.Select(tt.kind, tt.intensity, universe(100))
		require.True(t, sel.OK, "%s intensity %v", tt.kind, tt.intensity)
		assert.Len(t, sel.IDs, tt.count, "%s intensity %v", tt.kind, tt.intensity)
	}
}

func TestSelectMinimumOne(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	// floor(3 * 0.2) = 0, bumped to 1
	sel := e.Select(Rush, 0.2, universe(3))
	require.True(t, sel.OK)
	assert.Len(t, sel.IDs, 1)
}

func TestSelectEmptyUniverse(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	sel := e.Select(Rush, 0.5, nil)
	require.True(t, sel.OK)
	assert.Empty(t, sel.IDs)
}

func TestSelectUnknownKind(t *testing.T) {
	e := NewEngine(rand.NewSource(1))

	sel := e.Select("flood", 0.5, universe(10))
	assert.False(t, sel.OK)
	assert.Empty(t, sel.IDs)
}

func TestSelectDeterministicWithSeed(t *testing.T) {
	a := NewEngine(rand.NewSource(99))
	b := NewEngine(rand.NewSource(99))

	selA := a.Select(Festival, 0.3, universe(50))
	selB := b.Select(Festival, 0.3, universe(50))
	assert.Equal(t, selA.IDs, selB.IDs)
}

func TestTargetStatus(t *testing.T) {
	assert.Equal(t, grid.StatusOccupied, TargetStatus(Rush))
	assert.Equal(t, grid.StatusOccupied, TargetStatus(Festival))
	assert.Equal(t, grid.StatusUnavailable, TargetStatus(Emergency))
}
