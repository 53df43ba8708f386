package grid

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "parking_twin/pkg/errors"
)

func seededGrid(t *testing.T, rows, cols int) *GridState {
	t.Helper()
	g := New("central-lot", rows, cols)
	g.Seed(rand.New(rand.NewSource(42)))
	return g
}

func TestSeedLayout(t *testing.T) {
	g := seededGrid(t, 8, 10)

	snap := g.Snapshot()
	require.Len(t, snap.Slots, 80)
	assert.Equal(t, "central-lot", snap.LotID)
	assert.Equal(t, 8, snap.Rows)
	assert.Equal(t, 10, snap.Cols)

	for _, s := range snap.Slots {
		assert.Equal(t, int(StatusVacant), s.Status)
		assert.Equal(t, DefaultBasePrice, s.Price)
		if s.Row%2 == 0 {
			assert.Equal(t, "A", s.Zone, "slot %s", s.ID)
		} else {
			assert.Equal(t, "B", s.Zone, "slot %s", s.ID)
		}
	}

	// Row-major order with S-<row>-<col> ids
	assert.Equal(t, "S-0-0", snap.Slots[0].ID)
	assert.Equal(t, "S-0-9", snap.Slots[9].ID)
	assert.Equal(t, "S-7-9", snap.Slots[79].ID)
}

func TestSeedDeterministic(t *testing.T) {
	a := New("central-lot", 8, 10)
	a.Seed(rand.New(rand.NewSource(7)))
	b := New("central-lot", 8, 10)
	b.Seed(rand.New(rand.NewSource(7)))

	sa, sb := a.Snapshot(), b.Snapshot()
	require.Equal(t, len(sa.Slots), len(sb.Slots))
	for i := range sa.Slots {
		assert.Equal(t, sa.Slots[i].Type, sb.Slots[i].Type)
	}
}

func TestSetStatus(t *testing.T) {
	g := seededGrid(t, 2, 2)

	rec, err := g.SetStatus("S-0-1", StatusOccupied, nil)
	require.NoError(t, err)
	assert.Equal(t, int(StatusOccupied), rec.Status)
	assert.Equal(t, DefaultBasePrice, rec.Price)

	price := 4.0
	rec, err = g.SetStatus("S-0-1", StatusUnavailable, &price)
	require.NoError(t, err)
	assert.Equal(t, int(StatusUnavailable), rec.Status)
	assert.Equal(t, 4.0, rec.Price)
}

func TestSetStatusIdempotent(t *testing.T) {
	g := seededGrid(t, 2, 2)

	first, err := g.SetStatus("S-1-0", StatusOccupied, nil)
	require.NoError(t, err)
	second, err := g.SetStatus("S-1-0", StatusOccupied, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestSetStatusUnknownSlot(t *testing.T) {
	g := seededGrid(t, 2, 2)

	_, err := g.SetStatus("S-9-9", StatusOccupied, nil)
	assert.ErrorIs(t, err, apperrors.ErrSlotNotFound)
}

func TestSetStatusInvalidEnum(t *testing.T) {
	g := seededGrid(t, 2, 2)

	before, _ := g.SetStatus("S-0-0", StatusOccupied, nil)

	_, err := g.SetStatus("S-0-0", Status(3), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	_, err = g.SetStatus("S-0-0", Status(-1), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	// Slot untouched after rejected edit
	snap := g.Snapshot()
	for _, s := range snap.Slots {
		if s.ID == "S-0-0" {
			assert.Equal(t, before.Status, s.Status)
			assert.Equal(t, before.UpdatedAt, s.UpdatedAt)
		}
	}
}

func TestBulkUpdate(t *testing.T) {
	g := seededGrid(t, 2, 2)
	status := StatusOccupied

	recs, err := g.BulkUpdate([]string{"S-1-1", "S-0-0", "ghost"}, &status, nil)
	require.NoError(t, err)

	// Unknown ids skipped, committed records in input order
	require.Len(t, recs, 2)
	assert.Equal(t, "S-1-1", recs[0].ID)
	assert.Equal(t, "S-0-0", recs[1].ID)
	for _, rec := range recs {
		assert.Equal(t, int(StatusOccupied), rec.Status)
	}
}

func TestBulkUpdateInvalidStatus(t *testing.T) {
	g := seededGrid(t, 2, 2)
	status := Status(99)

	_, err := g.BulkUpdate([]string{"S-0-0"}, &status, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestOccupancy(t *testing.T) {
	g := seededGrid(t, 2, 2) // row 0 zone A, row 1 zone B

	assert.Equal(t, 0.0, g.Occupancy(""))

	g.SetStatus("S-0-0", StatusOccupied, nil)
	g.SetStatus("S-0-1", StatusOccupied, nil)
	assert.Equal(t, 0.5, g.Occupancy(""))
	assert.Equal(t, 1.0, g.Occupancy("A"))
	assert.Equal(t, 0.0, g.Occupancy("B"))

	// Unavailable slots count toward the denominator only
	g.SetStatus("S-1-0", StatusUnavailable, nil)
	assert.Equal(t, 0.5, g.Occupancy(""))

	// Unknown zone filters to an empty set
	assert.Equal(t, 0.0, g.Occupancy("Z"))
}

func TestZones(t *testing.T) {
	g := seededGrid(t, 3, 2)
	assert.Equal(t, []string{"A", "B"}, g.Zones())
}

func TestLoadRoundTrip(t *testing.T) {
	g := seededGrid(t, 4, 4)
	g.SetStatus("S-2-3", StatusOccupied, nil)

	recs := g.Records()

	reloaded := New("central-lot", 4, 4)
	reloaded.Load(recs)

	orig, back := g.Snapshot(), reloaded.Snapshot()
	require.Equal(t, len(orig.Slots), len(back.Slots))
	for i := range orig.Slots {
		assert.Equal(t, orig.Slots[i], back.Slots[i])
	}
}

func TestConcurrentDistinctSlots(t *testing.T) {
	g := seededGrid(t, 8, 10)
	ids := g.IDs()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := g.SetStatus(id, StatusOccupied, nil)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1.0, g.Occupancy(""))
}

func TestConcurrentSameSlot(t *testing.T) {
	g := seededGrid(t, 2, 2)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := StatusOccupied
			if i%2 == 0 {
				status = StatusVacant
			}
			_, err := g.SetStatus("S-0-0", status, nil)
			assert.NoError(t, err)
		}(i)
	}
	// Concurrent readers never observe torn state
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := g.Snapshot()
			for _, s := range snap.Slots {
				assert.True(t, Status(s.Status).Valid())
			}
		}()
	}
	wg.Wait()

	snap := g.Snapshot()
	final := snap.Slots[0]
	assert.True(t, Status(final.Status).Valid())
	assert.False(t, final.UpdatedAt.After(time.Now().Add(time.Second)))
}
