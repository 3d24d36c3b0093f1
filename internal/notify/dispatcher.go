// Package notify persists in-app notifications and relays them to email and
// SMS on a best-effort basis.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"smartattendance/internal/apperr"
	"smartattendance/internal/logger"
	"smartattendance/internal/metrics"
	"smartattendance/internal/model"
	"smartattendance/internal/queue"
	"smartattendance/internal/store"
)

// DefaultListLimit caps ListForUser.
const DefaultListLimit = 50

// RelayMessageType tags relay jobs on the queue.
const RelayMessageType = "notify.relay"

// Notifier is what other services depend on to tell a user something.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string, typ model.NotificationType) *model.Notification
}

// Job is the relay work item published after a notification is persisted.
type Job struct {
	NotificationID string                 `json:"notificationId"`
	UserID         string                 `json:"userId"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Type           model.NotificationType `json:"type"`
}

// Dispatcher writes notifications and hands relay jobs to the queue. Its
// failures never reach the caller.
type Dispatcher struct {
	store          store.Notifications
	queue          queue.Queue
	log            logger.Logger
	enqueueTimeout time.Duration

	wg sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher. A nil queue disables the external relay.
func NewDispatcher(st store.Notifications, q queue.Queue, log logger.Logger) *Dispatcher {
	return &Dispatcher{store: st, queue: q, log: log, enqueueTimeout: 5 * time.Second}
}

// Notify persists the notification and schedules its relay. It returns nil
// when persistence fails.
func (d *Dispatcher) Notify(ctx context.Context, userID, title, message string, typ model.NotificationType) *model.Notification {
	if !typ.Valid() {
		typ = model.NotificationGeneral
	}
	n := &model.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
	}
	if err := d.store.InsertNotification(ctx, n); err != nil {
		metrics.NotificationsCreated.WithLabelValues(string(typ), "error").Inc()
		d.log.Error("notification not persisted", err, map[string]any{"userId": userID, "type": typ})
		return nil
	}
	metrics.NotificationsCreated.WithLabelValues(string(typ), "ok").Inc()

	if d.queue != nil {
		job := Job{NotificationID: n.ID, UserID: userID, Title: title, Message: message, Type: typ}
		d.wg.Add(1)
		go d.enqueue(context.WithoutCancel(ctx), job)
	}
	return n
}

func (d *Dispatcher) enqueue(parent context.Context, job Job) {
	defer d.wg.Done()
	ctx, cancel := context.WithTimeout(parent, d.enqueueTimeout)
	defer cancel()

	msg, err := queue.NewMessage(RelayMessageType, job)
	if err == nil {
		err = d.queue.Publish(ctx, msg)
	}
	if err != nil {
		d.log.Warn("relay job not enqueued", err, map[string]any{"notificationId": job.NotificationID})
	}
}

// Wait blocks until every scheduled enqueue has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// MarkRead flags a notification as read.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) error {
	err := d.store.MarkNotificationRead(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	return err
}

// ListForUser returns the user's newest notifications, at most limit of them.
func (d *Dispatcher) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return d.store.ListNotifications(ctx, userID, limit)
}
