package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/parse"
	"lab-reservation-backend/internal/reservation"
)

type createReservationRequest struct {
	EquipmentID uint   `json:"equipment_id" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	Notes       string `json:"notes"`
	TeamID      *uint  `json:"team_id"`
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	start, end, err := parse.ParseInterval(req.StartDate, req.EndDate, h.location)
	if err != nil {
		respondError(c, err)
		return
	}

	r, err := h.reservations.Create(c.Request.Context(), reservation.CreateInput{
		EquipmentID: req.EquipmentID,
		RequesterID: p.UserID,
		TeamID:      req.TeamID,
		Start:       start,
		End:         end,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListReservations handles GET /api/reservations?status=PENDING,APPROVED.
func (h *Handler) ListReservations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var statuses []model.ReservationStatus
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := parse.ParseStatus(part)
			if err != nil {
				respondError(c, err)
				return
			}
			statuses = append(statuses, status)
		}
	}

	list, err := h.reservations.List(c.Request.Context(), p, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.reservations.Get(c.Request.Context(), id, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateReservationStatus handles PATCH /api/admin/reservations/:id/status.
// Delivery problems after the write are reported under "warnings".
func (h *Handler) UpdateReservationStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	status, err := parse.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.reservations.Transition(c.Request.Context(), id, status, p)
	if err != nil {
		respondError(c, err)
		return
	}

	warnings := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, w.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"reservation": result.Reservation,
		"delivered":   result.Delivered,
		"warnings":    warnings,
	})
}
