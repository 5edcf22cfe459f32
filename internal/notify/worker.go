package notify

import (
	"context"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"slotwatch-backend/internal/model"
)

// PushSender defines the interface for sending a web push
// notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the
// webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers that fan new-slot batches out
// to every push subscriber.
type WorkerPool struct {
	size    int
	jobs    chan []model.Slot
	db      *gorm.DB
	webpush *webpush.Options
	sender  PushSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan []model.Slot, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// SetSender replaces the push transport; tests use this.
func (wp *WorkerPool) SetSender(s PushSender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notify: worker %d started", id)
	for {
		select {
		case slots := <-wp.jobs:
			log.Printf("notify: worker %d announcing %d new slots", id, len(slots))
			wp.announceSlots(ctx, slots)
		case <-ctx.Done():
			log.Printf("notify: worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a batch of new slots to the worker pool.
func (wp *WorkerPool) Dispatch(slots []model.Slot) {
	wp.jobs <- slots
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan []model.Slot {
	return wp.jobs
}

// announceSlots pushes the batch to every registered subscription.
func (wp *WorkerPool) announceSlots(ctx context.Context, slots []model.Slot) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("notify: error fetching subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload := []byte(PushMessage(slots))
	log.Printf("notify: sending %d push notifications", len(subscriptions))
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
		log.Printf("notify: error sending to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions.
	if resp.StatusCode == http.StatusGone {
		log.Printf("notify: subscription %s is expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("notify: failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
