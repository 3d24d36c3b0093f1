package correction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/apperr"
	"smartattendance/internal/auth"
	"smartattendance/internal/logger"
	"smartattendance/internal/model"
	"smartattendance/internal/notify"
	"smartattendance/internal/store/memory"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, userID, title, message string, typ model.NotificationType) *model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := model.Notification{UserID: userID, Title: title, Message: message, Type: typ}
	f.sent = append(f.sent, n)
	return &n
}

var (
	admin   = auth.Identity{UserID: "A1", Role: model.RoleAdmin}
	teacher = auth.Identity{UserID: "T1", Role: model.RoleTeacher}
	testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc     *Service
	st      *memory.Store
	n       *fakeNotifier
	student model.User
	record  model.AttendanceRecord
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	student := model.User{Name: "S1", Email: "s1@school.test", Role: model.RoleStudent, RollNo: "17", Class: "10A"}
	require.NoError(t, st.CreateUser(ctx, &student))
	rec := model.AttendanceRecord{
		StudentID: student.ID, TeacherID: "T1", Subject: "Math", Class: "10A",
		Date: testNow, Status: model.StatusAbsent, Method: model.MethodManual,
	}
	require.NoError(t, st.InsertAttendance(ctx, &rec))

	n := &fakeNotifier{}
	svc := NewService(st, n)
	svc.nowFunc = func() time.Time { return testNow }
	return fixture{svc: svc, st: st, n: n, student: student, record: rec}
}

func (f fixture) file(t *testing.T) model.CorrectionRequest {
	t.Helper()
	cr, err := f.svc.File(context.Background(), f.student.ID, FileInput{
		AttendanceID: f.record.ID,
		Reason:       "present_marked_absent",
		Description:  "I was in class",
	})
	require.NoError(t, err)
	return cr
}

func TestFileStartsPendingAndFlagsRecord(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t)
	assert.Equal(t, model.CorrectionPending, cr.Status)
	assert.Nil(t, cr.ResponseDate)

	rec, err := f.st.GetAttendance(context.Background(), f.record.ID)
	require.NoError(t, err)
	assert.True(t, rec.CorrectionRequested)
}

func TestFileChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.File(ctx, f.student.ID, FileInput{AttendanceID: f.record.ID, Reason: "x"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	_, err = f.svc.File(ctx, f.student.ID, FileInput{AttendanceID: "missing", Reason: "x", Description: "y"})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = f.svc.File(ctx, "someone-else", FileInput{AttendanceID: f.record.ID, Reason: "x", Description: "y"})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestResolveRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t)

	_, err := f.svc.Resolve(context.Background(), teacher, cr.ID, ResolveInput{Status: model.CorrectionApproved})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	got, err := f.st.GetCorrection(context.Background(), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionPending, got.Status)
	assert.Empty(t, f.n.sent)
}

func TestResolveOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cr := f.file(t)

	_, err := f.svc.Resolve(ctx, admin, cr.ID, ResolveInput{Status: model.CorrectionPending})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	_, err = f.svc.Resolve(ctx, admin, "missing", ResolveInput{Status: model.CorrectionApproved})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	resolved, err := f.svc.Resolve(ctx, admin, cr.ID, ResolveInput{Status: model.CorrectionRejected, AdminNote: "No evidence"})
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionRejected, resolved.Status)

	_, err = f.svc.Resolve(ctx, admin, cr.ID, ResolveInput{Status: model.CorrectionApproved, AdminNote: "changed my mind"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	got, err := f.st.GetCorrection(ctx, cr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionRejected, got.Status)
	assert.Equal(t, "No evidence", got.AdminNote)
	assert.Len(t, f.n.sent, 1)
}

func TestCorrectionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cr := f.file(t)

	views, err := f.svc.ListForStudent(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, cr.ID, views[0].ID)
	require.NotNil(t, views[0].Attendance)
	assert.Equal(t, f.record.ID, views[0].Attendance.ID)

	resolved, err := f.svc.Resolve(ctx, admin, cr.ID, ResolveInput{Status: model.CorrectionApproved, AdminNote: "Verified"})
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionApproved, resolved.Status)
	require.NotNil(t, resolved.ResponseDate)
	assert.True(t, testNow.Equal(*resolved.ResponseDate))

	require.Len(t, f.n.sent, 1)
	sent := f.n.sent[0]
	assert.Equal(t, f.student.ID, sent.UserID)
	assert.Equal(t, model.NotificationCorrection, sent.Type)
	assert.Contains(t, sent.Message, "approved")
	assert.Contains(t, sent.Message, "Verified")

	all, err := f.svc.ListAll(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CorrectionApproved, all[0].Status)
	assert.Equal(t, "Verified", all[0].AdminNote)
	assert.Equal(t, "S1", all[0].StudentName)
	assert.Equal(t, "17", all[0].StudentRollNo)

	_, err = f.svc.ListAll(ctx, teacher)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestResolveSucceedsWhenNotificationsFail(t *testing.T) {
	f := newFixture(t)
	cr := f.file(t)
	f.svc.notifier = notify.NewDispatcher(brokenNotifications{f.st}, nil, logger.Discard())

	resolved, err := f.svc.Resolve(context.Background(), admin, cr.ID, ResolveInput{Status: model.CorrectionApproved})
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionApproved, resolved.Status)
}

type brokenNotifications struct{ *memory.Store }

func (brokenNotifications) InsertNotification(context.Context, *model.Notification) error {
	return context.DeadlineExceeded
}
