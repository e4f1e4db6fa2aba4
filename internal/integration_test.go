package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"lab-reservation-backend/config"
	"lab-reservation-backend/internal/auth"
	"lab-reservation-backend/internal/broadcast"
	"lab-reservation-backend/internal/db"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/notification"
	"lab-reservation-backend/internal/reminder"
	"lab-reservation-backend/internal/reservation"
	"lab-reservation-backend/internal/store"
)

type recordingMailer struct {
	mu       sync.Mutex
	subjects []string
}

func (m *recordingMailer) Send(_, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *recordingMailer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subjects...)
}

// TestReservationLifecycle drives a reservation from submission to completion
// and verifies the notifications, emails, reminders and broadcasts along the way.
func TestReservationLifecycle(t *testing.T) {
	// --- Test Setup ---
	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	requester := model.User{Name: "Ada", Email: "ada@lab.test", Role: model.RoleUser}
	adminUser := model.User{Name: "Root", Email: "root@lab.test", Role: model.RoleAdmin}
	require.NoError(t, testDB.Create(&requester).Error)
	require.NoError(t, testDB.Create(&adminUser).Error)
	equipment := model.Equipment{Name: "Laser Cutter", Available: true, Status: model.EquipmentAvailable}
	require.NoError(t, testDB.Create(&equipment).Error)
	admin := auth.Principal{UserID: adminUser.ID, Role: model.RoleAdmin}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(testDB)
	registry := broadcast.NewRegistry(broadcast.DefaultMaxFailures)
	mailer := &recordingMailer{}
	pool := notification.NewWorkerPool(2, 16, appStore, mailer, nil)
	pool.Start(ctx)
	dispatcher := notification.NewDispatcher(appStore, pool)
	svc := reservation.NewService(appStore, dispatcher, registry, reservation.Options{StrictTransitions: true})
	reminders := reminder.NewService(config.ReminderConfig{Enabled: true, Lead: 30 * time.Minute}, appStore, dispatcher)

	var mu sync.Mutex
	var updates []model.ReservationStatus
	registry.AddClient("admin:dashboard", func(env broadcast.Envelope) error {
		if env.Type == broadcast.TypeReservationUpdate {
			mu.Lock()
			updates = append(updates, env.Reservation.Status)
			mu.Unlock()
		}
		return nil
	})

	// --- 1. Submission ---
	start := time.Now().UTC().Add(20 * time.Minute).Truncate(time.Second)
	r, err := svc.Create(ctx, reservation.CreateInput{
		EquipmentID: equipment.ID,
		RequesterID: requester.ID,
		Start:       start,
		End:         start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)

	assert.Equal(t, 0, reminders.RunOnce(ctx), "pending reservations are not reminded")

	// --- 2. Approval ---
	result, err := svc.Transition(ctx, r.ID, model.StatusApproved, admin)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, result.Delivered)
	assert.Eventually(t, func() bool { return len(mailer.sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Reservation Approved", mailer.sent()[0])

	// --- 3. Reminder, sent once ---
	assert.Equal(t, 1, reminders.RunOnce(ctx))
	assert.Equal(t, 0, reminders.RunOnce(ctx))
	assert.Eventually(t, func() bool { return len(mailer.sent()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Reservation Starting Soon", mailer.sent()[1])

	// --- 4. Usage and completion ---
	_, err = svc.Transition(ctx, r.ID, model.StatusFinished, admin)
	assert.ErrorIs(t, err, reservation.ErrInvalidTransition, "strict mode requires ONGOING first")
	_, err = svc.Transition(ctx, r.ID, model.StatusOngoing, admin)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, r.ID, model.StatusFinished, admin)
	require.NoError(t, err)

	// --- 5. Verify ---
	inbox, err := appStore.ListNotifications(ctx, requester.ID)
	require.NoError(t, err)
	titles := make([]string, len(inbox))
	for i, n := range inbox {
		titles[i] = n.Title
	}
	assert.ElementsMatch(t, []string{
		"Reservation Approved", "Reservation Starting Soon", "Reservation Started", "Reservation Completed",
	}, titles)

	mu.Lock()
	assert.Equal(t, []model.ReservationStatus{
		model.StatusPending, model.StatusApproved, model.StatusOngoing, model.StatusFinished,
	}, updates)
	mu.Unlock()

	// A finished reservation releases its slot.
	_, err = svc.Create(ctx, reservation.CreateInput{
		EquipmentID: equipment.ID,
		RequesterID: requester.ID,
		Start:       start,
		End:         start.Add(time.Hour),
	})
	assert.NoError(t, err)
}
