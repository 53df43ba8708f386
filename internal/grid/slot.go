// Package grid holds the authoritative in-memory state for a single parking
// lot: a fixed set of slots whose status and price mutate at runtime while
// the key set, coordinates, zones and types stay frozen after initialization.
package grid

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the occupancy state of a single slot.
type Status int

const (
	StatusVacant      Status = 0
	StatusOccupied    Status = 1
	StatusUnavailable Status = 2
)

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	switch s {
	case StatusVacant, StatusOccupied, StatusUnavailable:
		return true
	}
	return false
}

// Slot type labels, fixed at seed time.
const (
	TypeStandard   = "standard"
	TypeEV         = "ev"
	TypeAccessible = "accessible"
)

// DefaultBasePrice is the per-hour price every slot is seeded with. The stored
// price is an operator-set base; the served "current price" is always
// recomputed by the pricing engine and never written back.
const DefaultBasePrice = 2.5

// Slot is one physical parking space. Row, col, zone and type are fixed at
// creation; only status, price and updatedAt mutate.
type Slot struct {
	ID        string
	Row       int
	Col       int
	Zone      string
	Type      string
	Status    Status
	Price     float64
	UpdatedAt time.Time
}

// View is the read-only projection of a slot served over HTTP and the live
// feed. Status is serialized as its integer enum value, price rounded to two
// decimals, updated_at as an ISO-8601 timestamp.
type View struct {
	ID        string    `json:"id"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Zone      string    `json:"zone"`
	Status    int       `json:"status"`
	Type      string    `json:"type"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is the persistence projection written through to the store after
// each commit. Unlike View it carries the price unrounded.
type Record struct {
	ID        string    `json:"id"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Zone      string    `json:"zone"`
	Status    int       `json:"status"`
	Type      string    `json:"type"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View converts a record into the wire projection.
func (r Record) View() View {
	return View{
		ID:        r.ID,
		Row:       r.Row,
		Col:       r.Col,
		Zone:      r.Zone,
		Status:    r.Status,
		Type:      r.Type,
		Price:     round2(r.Price),
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Slot) record() Record {
	return Record{
		ID:        s.ID,
		Row:       s.Row,
		Col:       s.Col,
		Zone:      s.Zone,
		Status:    int(s.Status),
		Type:      s.Type,
		Price:     s.Price,
		UpdatedAt: s.UpdatedAt,
	}
}

func slotFromRecord(r Record) *Slot {
	return &Slot{
		ID:        r.ID,
		Row:       r.Row,
		Col:       r.Col,
		Zone:      r.Zone,
		Type:      r.Type,
		Status:    Status(r.Status),
		Price:     r.Price,
		UpdatedAt: r.UpdatedAt,
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
