package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/apperr"
	"smartattendance/internal/logger"
	"smartattendance/internal/model"
	"smartattendance/internal/queue"
	"smartattendance/internal/store"
	"smartattendance/internal/store/memory"
)

type failingStore struct{ store.Notifications }

func (failingStore) InsertNotification(context.Context, *model.Notification) error {
	return errors.New("connection refused")
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[string]Content
	ok   bool
}

func newRecordingSender(ok bool) *recordingSender {
	return &recordingSender{sent: map[string]Content{}, ok: ok}
}

func (s *recordingSender) Send(_ context.Context, to string, c Content) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[to] = c
	return s.ok
}

func TestNotifyPersistsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	q := queue.NewInMemory(8)
	d := NewDispatcher(st, q, logger.Discard())

	n := d.Notify(ctx, "u1", "Attendance Recorded", "hello", model.NotificationAttendance)
	require.NotNil(t, n)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)
	d.Wait()

	list, err := d.ListForUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Message)

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := q.Consume(cctx)
	require.NoError(t, err)
	select {
	case msg := <-ch:
		var job Job
		require.NoError(t, msg.Decode(&job))
		assert.Equal(t, n.ID, job.NotificationID)
		assert.Equal(t, model.NotificationAttendance, job.Type)
	case <-time.After(time.Second):
		t.Fatal("relay job not enqueued")
	}
}

func TestNotifyFailureReturnsNil(t *testing.T) {
	d := NewDispatcher(failingStore{}, queue.NewInMemory(1), logger.Discard())
	assert.Nil(t, d.Notify(context.Background(), "u1", "t", "m", model.NotificationGeneral))
	d.Wait()
}

func TestNotifyUnknownTypeFallsBackToGeneral(t *testing.T) {
	d := NewDispatcher(memory.New(), nil, logger.Discard())
	n := d.Notify(context.Background(), "u1", "t", "m", "broadcast")
	require.NotNil(t, n)
	assert.Equal(t, model.NotificationGeneral, n.Type)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(memory.New(), nil, logger.Discard())
	n := d.Notify(ctx, "u1", "t", "m", model.NotificationGeneral)
	require.NotNil(t, n)

	require.NoError(t, d.MarkRead(ctx, n.ID))
	list, err := d.ListForUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.True(t, list[0].Read)

	err = d.MarkRead(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestListForUserCapsAtFifty(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	d := NewDispatcher(st, nil, logger.Discard())
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		require.NoError(t, st.InsertNotification(ctx, &model.Notification{
			UserID: "u1", Title: "t", Type: model.NotificationGeneral, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	list, err := d.ListForUser(ctx, "u1", 500)
	require.NoError(t, err)
	assert.Len(t, list, DefaultListLimit)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
}

func TestRelayDeliversToStudentAndParent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	parent := model.User{Name: "P", Email: "p@school.test", Phone: "+15550001", Role: model.RoleParent}
	require.NoError(t, st.CreateUser(ctx, &parent))
	student := model.User{Name: "S1", Email: "s1@school.test", Role: model.RoleStudent, ParentID: parent.ID}
	require.NoError(t, st.CreateUser(ctx, &student))

	email := newRecordingSender(true)
	sms := newRecordingSender(false)
	r := NewRelay(st, email, sms, logger.Discard(), time.Second)

	q := queue.NewInMemory(4)
	msg, err := queue.NewMessage(RelayMessageType, Job{UserID: student.ID, Title: "Attendance Recorded", Message: "m"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other"}))

	cctx, cancel := context.WithCancel(ctx)
	ch, err := q.Consume(cctx)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		r.Run(cctx, ch)
		close(done)
	}()

	require.Eventually(t, func() bool {
		email.mu.Lock()
		defer email.mu.Unlock()
		return len(email.sent) == 2
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "Attendance Recorded", email.sent["s1@school.test"].Subject)
	assert.Contains(t, email.sent, "p@school.test")
	assert.Contains(t, sms.sent, "+15550001")
}

func TestRelayUnknownUserIsDropped(t *testing.T) {
	email := newRecordingSender(true)
	r := NewRelay(memory.New(), email, nil, logger.Discard(), time.Second)
	r.Deliver(context.Background(), Job{UserID: "ghost"})
	assert.Empty(t, email.sent)
}

func TestUnconfiguredSendersAreNoop(t *testing.T) {
	assert.IsType(t, NoopSender{}, NewEmailSender("", "", "", "", logger.Discard()))
	assert.IsType(t, NoopSender{}, NewSMSSender("AC1", "", "+1555", logger.Discard()))
	assert.False(t, NoopSender{}.Send(context.Background(), "x", Content{}))
}
