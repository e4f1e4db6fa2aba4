// Package reservation implements conflict detection and the reservation lifecycle.
package reservation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/auth"
	"lab-reservation-backend/internal/broadcast"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/notification"
	"lab-reservation-backend/internal/store"
)

// Notifier produces the user-facing side of a status change.
type Notifier interface {
	Dispatch(ctx context.Context, targetUserID uint, equipmentName string, status model.ReservationStatus) notification.Result
}

// Broadcaster pushes envelopes to live subscribers.
type Broadcaster interface {
	Broadcast(env broadcast.Envelope) int
}

// Options configures a Service.
type Options struct {
	StrictTransitions bool
}

// Service creates reservations and applies administrator status changes.
type Service struct {
	store       store.Store
	notifier    Notifier
	broadcaster Broadcaster
	strict      bool
	validate    *validator.Validate
	now         func() time.Time
}

// NewService wires the reservation core to its collaborators.
func NewService(s store.Store, n Notifier, b Broadcaster, opts Options) *Service {
	return &Service{
		store:       s,
		notifier:    n,
		broadcaster: b,
		strict:      opts.StrictTransitions,
		validate:    validator.New(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is a requester's submission.
type CreateInput struct {
	EquipmentID uint      `validate:"required"`
	RequesterID uint      `validate:"required"`
	TeamID      *uint     `validate:"omitempty"`
	Start       time.Time `validate:"required"`
	End         time.Time `validate:"required"`
	Notes       string    `validate:"max=2000"`
}

// TransitionResult is the outcome of a status change. Warnings collect the
// side-effect failures that were absorbed after the write succeeded.
type TransitionResult struct {
	Reservation *model.Reservation
	Delivered   int
	Warnings    []error
}

// Create submits a PENDING reservation after checking the equipment and the
// interval. The check and the insert share one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Reservation, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	in.Start, in.End = in.Start.UTC(), in.End.UTC()
	if !in.End.After(in.Start) {
		return nil, apperr.Validation("end date must be after start date")
	}

	var created *model.Reservation
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		equipment, err := tx.LockEquipment(ctx, in.EquipmentID)
		if err != nil {
			return err
		}
		if !equipment.Reservable() {
			return apperr.Validation("equipment %q is not available for reservation", equipment.Name)
		}

		r := &model.Reservation{
			EquipmentID: in.EquipmentID,
			CreatedByID: in.RequesterID,
			StartDate:   in.Start,
			EndDate:     in.End,
			Status:      model.StatusPending,
			Notes:       in.Notes,
		}
		if in.TeamID != nil {
			member, err := tx.IsTeamMember(ctx, *in.TeamID, in.RequesterID)
			if err != nil {
				return err
			}
			if !member {
				return fmt.Errorf("%w: user %d is not a member of team %d", apperr.ErrForbidden, in.RequesterID, *in.TeamID)
			}
			teamID := *in.TeamID
			r.TeamID = &teamID
		} else {
			userID := in.RequesterID
			r.UserID = &userID
		}

		conflict, err := NewConflictChecker(tx).FindConflict(ctx, in.EquipmentID, in.Start, in.End, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(equipment.Name, conflict)
		}

		if err := tx.CreateReservation(ctx, r); err != nil {
			return err
		}
		created, err = tx.GetReservation(ctx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reservation %d created for equipment %d (%s - %s)", created.ID, created.EquipmentID,
		created.StartDate.Format(time.RFC3339), created.EndDate.Format(time.RFC3339))
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(broadcast.ReservationUpdate(created))
	}
	return created, nil
}

func conflictError(equipmentName string, existing *model.Reservation) error {
	return apperr.Conflict("%s is already reserved from %s to %s", equipmentName,
		existing.StartDate.Format(time.RFC3339), existing.EndDate.Format(time.RFC3339))
}

// Transition moves a reservation to newStatus on behalf of an administrator.
//
// The status write is authoritative: once it commits, notification and broadcast
// failures are logged and reported as warnings, never as an error. Repeating a
// transition is accepted and notifies again.
func (s *Service) Transition(ctx context.Context, id uint, newStatus model.ReservationStatus, actor auth.Principal) (*TransitionResult, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can change reservation status", apperr.ErrForbidden)
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidStatus, newStatus)
	}

	var updated *model.Reservation
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		current, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(current.Status, newStatus, s.strict); err != nil {
			return err
		}

		if holdsEquipment(newStatus) {
			if _, err := tx.LockEquipment(ctx, current.EquipmentID); err != nil {
				return err
			}
			conflict, err := NewConflictChecker(tx).FindConflict(ctx, current.EquipmentID, current.StartDate, current.EndDate, current.ID)
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflictError(current.EquipmentName(), conflict)
			}
		}

		updated, err = tx.UpdateReservationStatus(ctx, id, newStatus, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reservation %d set to %s by user %d", id, newStatus, actor.UserID)
	result := &TransitionResult{Reservation: updated}

	// Side effects must outlive a caller that disconnects after the write.
	sideCtx := context.WithoutCancel(ctx)
	if recipient, ok := updated.RecipientID(); ok && s.notifier != nil {
		res := s.notifier.Dispatch(sideCtx, recipient, updated.EquipmentName(), newStatus)
		result.Warnings = append(result.Warnings, res.Warnings...)
	} else if !ok {
		err := apperr.NotFound("recipient of reservation %d", id)
		log.Printf("Skipping notification: %v", err)
		result.Warnings = append(result.Warnings, err)
	}
	if s.broadcaster != nil {
		result.Delivered = s.broadcaster.Broadcast(broadcast.ReservationUpdate(updated))
	}
	return result, nil
}

// Get returns a reservation visible to actor: their own, their team's, or any for admins.
func (s *Service) Get(ctx context.Context, id uint, actor auth.Principal) (*model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return r, nil
	}
	if r.UserID != nil && *r.UserID == actor.UserID {
		return r, nil
	}
	if r.TeamID != nil {
		member, err := s.store.IsTeamMember(ctx, *r.TeamID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if member {
			return r, nil
		}
	}
	// Hide existence from other users.
	return nil, apperr.NotFound("reservation %d", id)
}

// List returns the reservations visible to actor, optionally filtered by status.
func (s *Service) List(ctx context.Context, actor auth.Principal, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	filter := store.ReservationFilter{Statuses: statuses}
	if !actor.IsAdmin() {
		teamIDs, err := s.store.TeamIDsForUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		filter.UserID = actor.UserID
		filter.TeamIDs = teamIDs
	}
	return s.store.ListReservations(ctx, filter)
}

// Active returns every reservation an administrator still has to act on or track.
func (s *Service) Active(ctx context.Context) ([]model.Reservation, error) {
	return s.store.ListReservations(ctx, store.ReservationFilter{Statuses: BlockingStatuses})
}

// Availability reports whether [start, end) is free for the equipment, and the
// first conflicting reservation if it is not.
func (s *Service) Availability(ctx context.Context, equipmentID uint, start, end time.Time) (bool, *model.Reservation, error) {
	equipment, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return false, nil, err
	}
	conflict, err := NewConflictChecker(s.store).FindConflict(ctx, equipmentID, start.UTC(), end.UTC(), 0)
	if err != nil {
		return false, nil, err
	}
	return equipment.Reservable() && conflict == nil, conflict, nil
}
