package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-reservation-backend/internal/model"
)

func TestEquipmentEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/equipment", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]model.Equipment](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "Spectrometer", items[0].Name)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/equipment/%d", ts.equipment.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/equipment/999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/equipment/x", "", nil).Code)
}

type availabilityResponse struct {
	Available bool `json:"available"`
	Conflict  *struct {
		ReservationID uint `json:"reservationId"`
	} `json:"conflict"`
}

func TestGetAvailability(t *testing.T) {
	ts := newTestServer(t)
	existing := ts.createReservation(t, "2025-02-10", "2025-02-12")
	base := fmt.Sprintf("/api/equipment/%d/availability", ts.equipment.ID)

	w := ts.do(http.MethodGet, base+"?start=2025-02-11&end=2025-02-13", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[availabilityResponse](t, w)
	assert.False(t, resp.Available)
	require.NotNil(t, resp.Conflict)
	assert.Equal(t, existing.ID, resp.Conflict.ReservationID)

	w = ts.do(http.MethodGet, base+"?start=2025-02-12&end=2025-02-14", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[availabilityResponse](t, w)
	assert.True(t, resp.Available)
	assert.Nil(t, resp.Conflict)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, base+"?start=2025-02-12", "", nil).Code)
}
