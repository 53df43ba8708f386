// Package api maps HTTP requests onto the twin service. Routing is thin:
// parse and validate the payload, call the service, translate sentinel
// errors into status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"parking_twin/internal/core"
	"parking_twin/internal/grid"
	"parking_twin/internal/twin"
	apperrors "parking_twin/pkg/errors"
)

const defaultIntensity = 0.5

// Handler exposes the REST surface of the twin service.
type Handler struct {
	svc    *twin.Service
	logger core.ILogger
}

// NewHandler creates a Handler.
func NewHandler(svc *twin.Service, logger core.ILogger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.WithField("component", "api"),
	}
}

// Register mounts the REST routes on the shared mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /lots/{lotID}/slots", h.handleSnapshot)
	mux.HandleFunc("PATCH /slots/{slotID}", h.handleSlotPatch)
	mux.HandleFunc("POST /scenarios/run", h.handleScenario)
	mux.HandleFunc("GET /pricing/current", h.handlePricing)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("lotID") != h.svc.LotID() {
		writeError(w, http.StatusNotFound, apperrors.ErrLotNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

type slotPatchRequest struct {
	Status *int     `json:"status"`
	Price  *float64 `json:"price"`
}

func (h *Handler) handleSlotPatch(w http.ResponseWriter, r *http.Request) {
	var body slotPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Status == nil {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	view, err := h.svc.SetSlotStatus(r.Context(), r.PathValue("slotID"), grid.Status(*body.Status), body.Price)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperrors.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("Slot edit failed", "slot_id", r.PathValue("slotID"), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type scenarioRequest struct {
	Type      string   `json:"type"`
	Intensity *float64 `json:"intensity"`
}

func (h *Handler) handleScenario(w http.ResponseWriter, r *http.Request) {
	var body scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intensity := defaultIntensity
	if body.Intensity != nil {
		intensity = *body.Intensity
	}

	result, ok := h.svc.RunScenario(r.Context(), body.Type, intensity)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown scenario")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prices": h.svc.Prices(time.Now()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
