package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-reservation-backend/internal/parse"
)

// ListEquipment handles GET /api/equipment.
func (h *Handler) ListEquipment(c *gin.Context) {
	items, err := h.store.ListEquipment(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetEquipment handles GET /api/equipment/:id.
func (h *Handler) GetEquipment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.store.GetEquipment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetAvailability handles GET /api/equipment/:id/availability?start=&end=.
func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	start, end, err := parse.ParseInterval(c.Query("start"), c.Query("end"), h.location)
	if err != nil {
		respondError(c, err)
		return
	}

	available, conflict, err := h.reservations.Availability(c.Request.Context(), id, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"equipmentId": id, "start": start, "end": end, "available": available}
	if conflict != nil {
		resp["conflict"] = gin.H{
			"reservationId": conflict.ID,
			"startDate":     conflict.StartDate,
			"endDate":       conflict.EndDate,
			"status":        conflict.Status,
		}
	}
	c.JSON(http.StatusOK, resp)
}
