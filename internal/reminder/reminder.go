// Package reminder notifies requesters shortly before an approved reservation starts.
package reminder

import (
	"context"
	"log"
	"time"

	"lab-reservation-backend/config"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/notification"
)

// Store is the persistence the scheduler needs.
type Store interface {
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	MarkReminded(ctx context.Context, id uint, at time.Time) error
}

// Sender delivers a rendered notification to a user.
type Sender interface {
	Send(ctx context.Context, targetUserID uint, msg notification.Message) notification.Result
}

// Service periodically scans for approved reservations that start soon.
type Service struct {
	cfg    config.ReminderConfig
	store  Store
	sender Sender
	now    func() time.Time
}

// NewService creates a reminder scheduler.
func NewService(cfg config.ReminderConfig, s Store, sender Sender) *Service {
	return &Service{
		cfg:    cfg,
		store:  s,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run scans once immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Reminder scheduler is disabled. Not starting.")
		return
	}
	log.Println("Starting reminder scheduler...")

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder scheduler shutting down.")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RunOnce sends a reminder for every approved reservation starting within the
// lead window and marks it so it is reminded only once. It returns the number
// of reservations processed.
func (s *Service) RunOnce(ctx context.Context) int {
	now := s.now()
	due, err := s.store.ListDueReminders(ctx, now, now.Add(s.cfg.Lead))
	if err != nil {
		log.Printf("Error listing due reminders: %v", err)
		return 0
	}

	sent := 0
	for i := range due {
		r := &due[i]
		recipient, ok := r.RecipientID()
		if !ok {
			log.Printf("Reservation %d has no recipient, skipping reminder", r.ID)
		} else {
			res := s.sender.Send(ctx, recipient, notification.ReminderMessage(r.EquipmentName(), r.StartDate))
			for _, w := range res.Warnings {
				log.Printf("Reminder for reservation %d: %v", r.ID, w)
			}
		}

		if err := s.store.MarkReminded(ctx, r.ID, now); err != nil {
			log.Printf("Error marking reservation %d as reminded: %v", r.ID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("Reminder cycle finished: %d reservation(s) reminded.", sent)
	}
	return sent
}
