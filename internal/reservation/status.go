package reservation

import (
	"fmt"
	"slices"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/model"
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", apperr.ErrValidation)

// strictTransitions is the full lifecycle table, enforced when strict mode is on.
var strictTransitions = map[model.ReservationStatus][]model.ReservationStatus{
	model.StatusPending:  {model.StatusApproved, model.StatusRejected},
	model.StatusApproved: {model.StatusOngoing},
	model.StatusOngoing:  {model.StatusFinished},
}

// CheckTransition validates moving a reservation from one status to another.
//
// Re-applying the current status is always allowed. A pending reservation can
// never jump straight to ONGOING or FINISHED. Beyond that, the lifecycle is left
// to administrator judgment unless strict is set.
func CheckTransition(from, to model.ReservationStatus, strict bool) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidStatus, to)
	}
	if from == to {
		return nil
	}
	if from == model.StatusPending && (to == model.StatusOngoing || to == model.StatusFinished) {
		return fmt.Errorf("%w: %s to %s requires approval first", ErrInvalidTransition, from, to)
	}
	if !strict {
		return nil
	}
	for _, allowed := range strictTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// holdsEquipment reports whether entering status requires the interval to be free.
// It covers every blocking status, so reopening a rejected or finished
// reservation is checked like a new submission.
func holdsEquipment(status model.ReservationStatus) bool {
	return slices.Contains(BlockingStatuses, status)
}
