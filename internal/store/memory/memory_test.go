package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

func TestUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &model.User{Email: "a@school.test"}))
	assert.ErrorIs(t, s.CreateUser(ctx, &model.User{Email: "A@school.test"}), store.ErrDuplicate)
}

func TestFindAttendanceInWindow(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	rec := model.AttendanceRecord{StudentID: "s1", Subject: "Math", Class: "10A", Date: day}
	require.NoError(t, s.InsertAttendance(ctx, &rec))

	from, to := model.DayWindow(day)
	got, err := s.FindAttendanceInWindow(ctx, rec.Slot(), from, to)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)

	from, to = model.DayWindow(day.Add(time.Minute))
	got, err = s.FindAttendanceInWindow(ctx, rec.Slot(), from, to)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveCorrectionOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	s := New()
	cr := model.CorrectionRequest{StudentID: "s1", Status: model.CorrectionPending}
	require.NoError(t, s.InsertCorrection(ctx, &cr))

	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	got, err := s.ResolveCorrection(ctx, cr.ID, model.CorrectionApproved, "ok", at)
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionApproved, got.Status)
	assert.Equal(t, at, *got.ResponseDate)

	_, err = s.ResolveCorrection(ctx, cr.ID, model.CorrectionRejected, "", at)
	assert.ErrorIs(t, err, store.ErrNotPending)
	_, err = s.ResolveCorrection(ctx, "missing", model.CorrectionRejected, "", at)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListNotificationsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertNotification(ctx, &model.Notification{UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	list, err := s.ListNotifications(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, base.Add(2*time.Hour), list[0].CreatedAt)
}
