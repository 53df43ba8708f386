// Package pricing derives per-slot prices from grid occupancy. It is a pure
// function of a snapshot and a clock reading: no caching, no stored state,
// and it never writes back to the operator-set slot price.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"parking_twin/internal/grid"
)

// BasePrice is the fixed starting point of every quote, in currency per hour.
const BasePrice = 2.5

// SurgeMultiplier maps an occupancy ratio onto the surge curve. The
// thresholds are fixed policy constants.
func SurgeMultiplier(occupancy float64) float64 {
	if occupancy < 0.5 {
		return 1.0
	}
	if occupancy < 0.8 {
		return 1.2
	}
	return 1.5
}

// TimeBandMultiplier returns the peak-hours uplift for the given local time.
// Peaks are [07:00,10:00] and [16:00,19:30], bounds inclusive.
func TimeBandMultiplier(now time.Time) float64 {
	t := float64(now.Hour()) + float64(now.Minute())/60
	if (t >= 7 && t <= 10) || (t >= 16 && t <= 19.5) {
		return 1.15
	}
	return 1.0
}

// ComputePrices recomputes every slot's current price over one consistent
// snapshot: lot surge x time band x zone surge x location factor applied to
// the fixed base, rounded to two decimals half away from zero.
func ComputePrices(snap grid.Snapshot, now time.Time) map[string]float64 {
	prices := make(map[string]float64, len(snap.Slots))
	if len(snap.Slots) == 0 {
		return prices
	}

	var occupied int
	zoneTotal := make(map[string]int)
	zoneOccupied := make(map[string]int)
	for _, s := range snap.Slots {
		zoneTotal[s.Zone]++
		if s.Status == int(grid.StatusOccupied) {
			occupied++
			zoneOccupied[s.Zone]++
		}
	}

	lotSurge := SurgeMultiplier(float64(occupied) / float64(len(snap.Slots)))
	band := TimeBandMultiplier(now)

	for _, s := range snap.Slots {
		zoneSurge := SurgeMultiplier(float64(zoneOccupied[s.Zone]) / float64(zoneTotal[s.Zone]))
		location := 1.0
		if s.Zone == "A" {
			location = 1.1
		}
		prices[s.ID] = round2(BasePrice * lotSurge * band * zoneSurge * location)
	}
	return prices
}

func round2(v float64) float64 {
	// decimal.Round rounds half away from zero
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
