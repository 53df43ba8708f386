package main

import (
	"context"
	"time"

	"parking_twin/internal/config"
	"parking_twin/internal/twin"
	"parking_twin/pkg/concurrency"
	"parking_twin/pkg/liveserver"
	"parking_twin/pkg/telemetry"
)

// StreamHandlers manages the periodic broadcast streams
type StreamHandlers struct {
	service *twin.Service
	hub     *liveserver.Hub
	pool    *concurrency.WorkerPool
	config  *config.Config
	logger  liveserver.Logger
}

// NewStreamHandlers creates a new stream handlers manager
func NewStreamHandlers(service *twin.Service, hub *liveserver.Hub, pool *concurrency.WorkerPool, cfg *config.Config, logger liveserver.Logger) *StreamHandlers {
	return &StreamHandlers{
		service: service,
		hub:     hub,
		pool:    pool,
		config:  cfg,
		logger:  logger,
	}
}

// StartAll starts all stream handlers
func (s *StreamHandlers) StartAll(ctx context.Context) {
	go s.streamPrices(ctx)
	go s.observeOccupancy(ctx)
}

// streamPrices periodically pushes the full price table to all clients.
// Slot mutations already carry their own recomputed price; this stream
// keeps time-band transitions visible on an otherwise quiet lot.
func (s *StreamHandlers) streamPrices(ctx context.Context) {
	interval := time.Duration(s.config.Streams.PriceInterval) * time.Second

	if s.logger != nil {
		s.logger.Info("Starting price stream", "interval", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.pool.Submit(func() {
				prices := s.service.Prices(time.Now())
				s.hub.Broadcast(liveserver.NewPricesMessage(prices))
				telemetry.GetGlobalMetrics().RecordBroadcast(context.Background(), liveserver.TypePrices)
			})
			if err != nil && s.logger != nil {
				s.logger.Warn("Price broadcast dropped", "error", err)
			}
		}
	}
}

// observeOccupancy refreshes the occupancy gauge for the lot and each zone.
func (s *StreamHandlers) observeOccupancy(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics := telemetry.GetGlobalMetrics()
			metrics.SetOccupancy("all", s.service.Occupancy(""))
			for _, zone := range s.service.Zones() {
				metrics.SetOccupancy(zone, s.service.Occupancy(zone))
			}
		}
	}
}
