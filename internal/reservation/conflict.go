package reservation

import (
	"context"
	"time"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/store"
)

// BlockingStatuses are the statuses that hold an equipment item. The same set
// is used when a reservation is created and when an administrator approves one.
var BlockingStatuses = []model.ReservationStatus{
	model.StatusPending,
	model.StatusApproved,
	model.StatusOngoing,
}

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Finder loads candidate reservations for a conflict check.
type Finder interface {
	FindOverlapping(ctx context.Context, q store.OverlapQuery) ([]model.Reservation, error)
}

// ConflictChecker guards equipment against double booking.
type ConflictChecker struct {
	finder Finder
}

// NewConflictChecker creates a checker reading through f.
func NewConflictChecker(f Finder) *ConflictChecker {
	return &ConflictChecker{finder: f}
}

// HasConflict reports whether [start, end) overlaps a blocking reservation of the
// equipment other than excludeID (0 excludes nothing).
func (c *ConflictChecker) HasConflict(ctx context.Context, equipmentID uint, start, end time.Time, excludeID uint) (bool, error) {
	conflict, err := c.FindConflict(ctx, equipmentID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return conflict != nil, nil
}

// FindConflict returns the first blocking reservation overlapping [start, end), or nil.
func (c *ConflictChecker) FindConflict(ctx context.Context, equipmentID uint, start, end time.Time, excludeID uint) (*model.Reservation, error) {
	if !start.Before(end) {
		return nil, apperr.Validation("end date must be after start date")
	}

	candidates, err := c.finder.FindOverlapping(ctx, store.OverlapQuery{
		EquipmentID: equipmentID,
		Start:       start,
		End:         end,
		Statuses:    BlockingStatuses,
		ExcludeID:   excludeID,
	})
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		existing := &candidates[i]
		if existing.ID == excludeID && excludeID != 0 {
			continue
		}
		if Overlaps(start, end, existing.StartDate, existing.EndDate) {
			return existing, nil
		}
	}
	return nil, nil
}
