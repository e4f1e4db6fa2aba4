package notification

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/store"
)

var errQueueFull = errors.New("delivery queue is full")

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Delivery is one outbound message for a user, sent by email and web push.
type Delivery struct {
	UserID  uint
	Title   string
	Message string
	Type    string
}

// WorkerPool manages a pool of workers that deliver notifications outside the request path.
type WorkerPool struct {
	size    int
	jobs    chan Delivery
	store   store.Store
	mailer  Mailer
	webpush *webpush.Options
	sender  PushSender
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables push delivery.
func NewWorkerPool(size, queueSize int, s store.Store, mailer Mailer, webpushOptions *webpush.Options) *WorkerPool {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Delivery, queueSize),
		store:   s,
		mailer:  mailer,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case d := <-wp.jobs:
			wp.deliver(ctx, d)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a delivery without blocking. A full queue is reported as a
// transport failure and the delivery is dropped.
func (wp *WorkerPool) Dispatch(d Delivery) error {
	select {
	case wp.jobs <- d:
		return nil
	default:
		return apperr.Transport("queue", errQueueFull)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Delivery {
	return wp.jobs
}

// deliver sends d by email and web push. Each channel's failure is logged and
// does not prevent the other.
func (wp *WorkerPool) deliver(ctx context.Context, d Delivery) {
	user, err := wp.store.GetUser(ctx, d.UserID)
	if err != nil {
		log.Printf("Error fetching user %d for delivery: %v", d.UserID, err)
	} else if err := wp.mailer.Send(user.Email, d.Title, d.Message); err != nil {
		log.Printf("Error sending email to user %d: %v", d.UserID, apperr.Transport("email", err))
	}

	if wp.webpush == nil {
		return
	}
	subscriptions, err := wp.store.PushSubscriptions(ctx, d.UserID)
	if err != nil {
		log.Printf("Error fetching push subscriptions for user %d: %v", d.UserID, err)
		return
	}

	payload := []byte(d.Title + ": " + d.Message)
	for _, sub := range subscriptions {
		wp.sendPush(ctx, sub, payload)
	}
}

// sendPush sends a single web push notification.
func (wp *WorkerPool) sendPush(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending push to %s: %v", sub.Endpoint, apperr.Transport("push", err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint, sub.UserID); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
