package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/store"
)

// Queue accepts deliveries for asynchronous sending.
type Queue interface {
	Dispatch(d Delivery) error
}

// Message is the rendered content of a notification.
type Message struct {
	Title string
	Body  string
	Type  string
}

// Result reports what a dispatch produced. Warnings hold the failures that were
// absorbed; they never turn into an error for the caller.
type Result struct {
	Notification *model.Notification
	Warnings     []error
}

// Dispatcher records in-app notifications and queues their email and push delivery.
type Dispatcher struct {
	store store.Store
	queue Queue
}

// NewDispatcher creates a Dispatcher. A nil queue disables outbound delivery.
func NewDispatcher(s store.Store, queue Queue) *Dispatcher {
	return &Dispatcher{store: s, queue: queue}
}

// StatusMessage renders the notification for a reservation that entered status.
func StatusMessage(equipmentName string, status model.ReservationStatus) Message {
	switch status {
	case model.StatusPending:
		return Message{
			Title: "Reservation Submitted",
			Body:  fmt.Sprintf("Your reservation for %s has been submitted and is awaiting approval.", equipmentName),
			Type:  "reservation_pending",
		}
	case model.StatusApproved:
		return Message{
			Title: "Reservation Approved",
			Body:  fmt.Sprintf("Your reservation for %s has been approved. Please arrive on time.", equipmentName),
			Type:  "reservation_approved",
		}
	case model.StatusRejected:
		return Message{
			Title: "Reservation Rejected",
			Body:  fmt.Sprintf("Your reservation for %s has been rejected. Please contact an administrator for details.", equipmentName),
			Type:  "reservation_rejected",
		}
	case model.StatusOngoing:
		return Message{
			Title: "Reservation Started",
			Body:  fmt.Sprintf("Your reservation for %s is now in progress.", equipmentName),
			Type:  "reservation_ongoing",
		}
	case model.StatusFinished:
		return Message{
			Title: "Reservation Completed",
			Body:  fmt.Sprintf("Your reservation for %s has been completed. Thank you for returning the equipment.", equipmentName),
			Type:  "reservation_finished",
		}
	default:
		return Message{
			Title: "Reservation Updated",
			Body:  fmt.Sprintf("Your reservation for %s is now %s.", equipmentName, status),
			Type:  "reservation_updated",
		}
	}
}

// ReminderMessage renders the "starting soon" notification.
func ReminderMessage(equipmentName string, start time.Time) Message {
	return Message{
		Title: "Reservation Starting Soon",
		Body:  fmt.Sprintf("Your reservation for %s starts at %s.", equipmentName, start.UTC().Format("2006-01-02 15:04 MST")),
		Type:  "reservation_reminder",
	}
}

// Dispatch notifies targetUserID that their reservation for equipmentName entered status.
func (d *Dispatcher) Dispatch(ctx context.Context, targetUserID uint, equipmentName string, status model.ReservationStatus) Result {
	return d.Send(ctx, targetUserID, StatusMessage(equipmentName, status))
}

// Send records msg for the user and queues its outbound delivery. The two steps
// are independent: a failure of one is logged and the other still runs.
func (d *Dispatcher) Send(ctx context.Context, targetUserID uint, msg Message) Result {
	var result Result

	n := &model.Notification{
		UserID:  targetUserID,
		Title:   msg.Title,
		Message: msg.Body,
		Type:    msg.Type,
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Printf("Error creating notification for user %d: %v", targetUserID, err)
		result.Warnings = append(result.Warnings, err)
	} else {
		result.Notification = n
	}

	if d.queue != nil {
		err := d.queue.Dispatch(Delivery{UserID: targetUserID, Title: msg.Title, Message: msg.Body, Type: msg.Type})
		if err != nil {
			log.Printf("Error queueing delivery for user %d: %v", targetUserID, err)
			result.Warnings = append(result.Warnings, err)
		}
	}

	return result
}
