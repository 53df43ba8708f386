package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_twin/internal/grid"
	"parking_twin/internal/scenario"
	"parking_twin/internal/store"
	"parking_twin/internal/twin"
	"parking_twin/pkg/logging"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	g := grid.New("central-lot", 4, 5)
	svc := twin.NewService(g, store.NewMemoryStore(), nil, scenario.NewEngine(rand.NewSource(42)), logger)
	require.NoError(t, svc.Bootstrap(context.Background(), rand.New(rand.NewSource(1))))

	mux := http.NewServeMux()
	NewHandler(svc, logger).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestGetSlots(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "GET", "/lots/central-lot/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap grid.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, "central-lot", snap.LotID)
	assert.Len(t, snap.Slots, 20)
	assert.Equal(t, "S-0-0", snap.Slots[0].ID)
}

func TestGetSlotsUnknownLot(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "GET", "/lots/mystery-lot/slots", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchSlot(t *testing.T) {
	mux := newTestMux(t)

	status := 1
	price := 4.25
	w := doJSON(t, mux, "PATCH", "/slots/S-1-2", map[string]interface{}{
		"status": status,
		"price":  price,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var view grid.View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "S-1-2", view.ID)
	assert.Equal(t, 1, view.Status)
	assert.Equal(t, 4.25, view.Price)

	// Edit visible in a subsequent snapshot
	w = doJSON(t, mux, "GET", "/lots/central-lot/slots", nil)
	var snap grid.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	for _, s := range snap.Slots {
		if s.ID == "S-1-2" {
			assert.Equal(t, 1, s.Status)
		}
	}
}

func TestPatchSlotMissingStatus(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "PATCH", "/slots/S-0-0", map[string]interface{}{"price": 3.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchSlotInvalidStatus(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "PATCH", "/slots/S-0-0", map[string]interface{}{"status": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchSlotUnknownID(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "PATCH", "/slots/S-9-9", map[string]interface{}{"status": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchSlotMalformedBody(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest("PATCH", "/slots/S-0-0", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunScenario(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "POST", "/scenarios/run", map[string]interface{}{
		"type":      "rush",
		"intensity": 0.5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result twin.ScenarioResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "rush", result.Mode)
	assert.Len(t, result.Applied, 10) // floor(20 * 0.5)
}

func TestRunScenarioDefaultIntensity(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "POST", "/scenarios/run", map[string]interface{}{"type": "festival"})
	require.Equal(t, http.StatusOK, w.Code)

	var result twin.ScenarioResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "festival", result.Mode)
	// default 0.5 clamps to festival's 0.6 ceiling only from above; floor(20*0.5)=10
	assert.Len(t, result.Applied, 10)
}

func TestRunScenarioUnknownType(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "POST", "/scenarios/run", map[string]interface{}{"type": "blizzard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPricing(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "GET", "/pricing/current", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Prices map[string]float64 `json:"prices"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Prices, 20)
	for id, price := range body.Prices {
		assert.Greater(t, price, 0.0, "slot %s", id)
	}
}

func TestErrorBodyShape(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "PATCH", fmt.Sprintf("/slots/%s", "S-9-9"), map[string]interface{}{"status": 1})
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}
