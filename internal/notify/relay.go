package notify

import (
	"context"
	"time"

	"smartattendance/internal/logger"
	"smartattendance/internal/metrics"
	"smartattendance/internal/model"
	"smartattendance/internal/queue"
	"smartattendance/internal/store"
)

// Content is what a channel delivers.
type Content struct {
	Subject string
	Body    string
}

// Sender delivers content to one destination. It reports success and never
// returns an error; failures are the sender's to log.
type Sender interface {
	Send(ctx context.Context, to string, content Content) bool
}

// NoopSender stands in for an unconfigured channel.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, Content) bool { return false }

// Relay consumes relay jobs and fans them out to email and SMS.
type Relay struct {
	users   store.Users
	email   Sender
	sms     Sender
	log     logger.Logger
	timeout time.Duration
}

// NewRelay builds a relay. Nil senders are replaced with NoopSender.
func NewRelay(users store.Users, email, sms Sender, log logger.Logger, timeout time.Duration) *Relay {
	if email == nil {
		email = NoopSender{}
	}
	if sms == nil {
		sms = NoopSender{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Relay{users: users, email: email, sms: sms, log: log, timeout: timeout}
}

// Run handles messages until the channel closes.
func (r *Relay) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		if msg.Type != RelayMessageType {
			continue
		}
		var job Job
		if err := msg.Decode(&job); err != nil {
			r.log.Warn("relay job undecodable", err)
			continue
		}
		r.Deliver(ctx, job)
	}
}

// Deliver sends job to the user and, for students, to their parent.
func (r *Relay) Deliver(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u, err := r.users.GetUser(ctx, job.UserID)
	if err != nil {
		r.log.Warn("relay recipient lookup failed", err, map[string]any{"userId": job.UserID})
		return
	}
	recipients := []model.User{u}
	if u.Role == model.RoleStudent && u.ParentID != "" {
		if p, err := r.users.GetUser(ctx, u.ParentID); err == nil {
			recipients = append(recipients, p)
		}
	}

	content := Content{Subject: job.Title, Body: job.Message}
	for _, rcpt := range recipients {
		if rcpt.Email != "" {
			r.send(ctx, "email", r.email, rcpt.Email, content)
		}
		if rcpt.Phone != "" {
			r.send(ctx, "sms", r.sms, rcpt.Phone, content)
		}
	}
}

func (r *Relay) send(ctx context.Context, channel string, s Sender, to string, content Content) {
	if _, ok := s.(NoopSender); ok {
		metrics.RelayDeliveries.WithLabelValues(channel, "skipped").Inc()
		return
	}
	if s.Send(ctx, to, content) {
		metrics.RelayDeliveries.WithLabelValues(channel, "ok").Inc()
		return
	}
	metrics.RelayDeliveries.WithLabelValues(channel, "failed").Inc()
}
