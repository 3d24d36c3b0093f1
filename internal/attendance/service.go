// Package attendance records attendance through batch entry, face
// recognition and QR redemption, and serves the read side.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"smartattendance/internal/apperr"
	"smartattendance/internal/metrics"
	"smartattendance/internal/model"
	"smartattendance/internal/notify"
	"smartattendance/internal/store"
)

// PresentThreshold is the confidence a face match must exceed to count as present.
const PresentThreshold = 0.80

// DefaultQRTTL is how long a generated QR payload can be redeemed.
const DefaultQRTTL = 5 * time.Minute

// Records is the slice of the Record Store the recorder needs.
type Records interface {
	store.Attendance
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// Service coordinates attendance writes and their notifications.
type Service struct {
	records  Records
	notifier notify.Notifier
	qr       *QRCodec
	qrTTL    time.Duration
	validate *validator.Validate
	nowFunc  func() time.Time
}

// NewService creates a recorder. qrSecret signs generated QR payloads.
func NewService(records Records, notifier notify.Notifier, qrSecret string, qrTTL time.Duration) *Service {
	if qrTTL <= 0 {
		qrTTL = DefaultQRTTL
	}
	return &Service{
		records:  records,
		notifier: notifier,
		qr:       NewQRCodec(qrSecret),
		qrTTL:    qrTTL,
		validate: validator.New(),
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

// BatchEntry is one student's line in a batch submission.
type BatchEntry struct {
	StudentID  string       `json:"id" validate:"required"`
	Status     model.Status `json:"status" validate:"required,oneof=present absent late"`
	Method     model.Method `json:"method" validate:"omitempty,oneof=face_recognition qr_code manual"`
	Confidence *float64     `json:"confidence"`
}

type BatchInput struct {
	Subject  string       `json:"subject" validate:"required"`
	Class    string       `json:"class" validate:"required"`
	Students []BatchEntry `json:"students" validate:"required,min=1,dive"`
}

// RecordBatch inserts one record per entry. Unlike the single-record paths it
// does not check for an existing record in the slot.
func (s *Service) RecordBatch(ctx context.Context, teacherID string, in BatchInput) ([]model.AttendanceRecord, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Invalid("subject, class and a valid students list are required")
	}
	now := s.nowFunc()
	recs := make([]*model.AttendanceRecord, 0, len(in.Students))
	for _, e := range in.Students {
		method := e.Method
		if method == "" {
			method = model.MethodFaceRecognition
		}
		recs = append(recs, &model.AttendanceRecord{
			StudentID:  e.StudentID,
			TeacherID:  teacherID,
			Subject:    in.Subject,
			Class:      in.Class,
			Date:       now,
			Status:     e.Status,
			Method:     method,
			Confidence: e.Confidence,
			CreatedAt:  now,
		})
	}
	if err := s.records.InsertAttendance(ctx, recs...); err != nil {
		return nil, err
	}
	out := make([]model.AttendanceRecord, 0, len(recs))
	for _, r := range recs {
		metrics.AttendanceRecorded.WithLabelValues(string(r.Method), string(r.Status)).Inc()
		out = append(out, *r)
	}
	return out, nil
}

type FaceInput struct {
	StudentID  string   `json:"studentId" validate:"required"`
	Subject    string   `json:"subject" validate:"required"`
	Class      string   `json:"class" validate:"required"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
}

// RecordFaceRecognition records a face-recognition match for today.
func (s *Service) RecordFaceRecognition(ctx context.Context, teacherID string, in FaceInput) (model.AttendanceRecord, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.AttendanceRecord{}, apperr.Invalid("studentId, subject, class and a confidence in [0,1] are required")
	}
	status := model.StatusLate
	if *in.Confidence > PresentThreshold {
		status = model.StatusPresent
	}
	conf := *in.Confidence
	rec := model.AttendanceRecord{
		StudentID:  in.StudentID,
		TeacherID:  teacherID,
		Subject:    in.Subject,
		Class:      in.Class,
		Status:     status,
		Method:     model.MethodFaceRecognition,
		Confidence: &conf,
	}
	if err := s.recordOnce(ctx, &rec); err != nil {
		return model.AttendanceRecord{}, err
	}
	s.notifier.Notify(ctx, rec.StudentID, "Attendance Recorded",
		fmt.Sprintf("Your attendance has been recorded for %s via face recognition.", rec.Subject),
		model.NotificationAttendance)
	return rec, nil
}

type QRInput struct {
	QRData    string `json:"qrData" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}

// RecordQR redeems a QR payload for a student.
func (s *Service) RecordQR(ctx context.Context, callerID string, in QRInput) (model.AttendanceRecord, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.AttendanceRecord{}, apperr.Invalid("qrData and studentId are required")
	}
	p, issued, err := s.qr.Decode(in.QRData)
	if err != nil {
		metrics.AttendanceRejected.WithLabelValues("qr_invalid").Inc()
		return model.AttendanceRecord{}, apperr.Invalid("invalid QR code")
	}
	if s.nowFunc().Sub(issued) > s.qrTTL {
		metrics.AttendanceRejected.WithLabelValues("qr_expired").Inc()
		return model.AttendanceRecord{}, apperr.ExpiredCode("QR code has expired")
	}
	teacherID := p.TeacherID
	if teacherID == "" {
		teacherID = callerID
	}
	rec := model.AttendanceRecord{
		StudentID: in.StudentID,
		TeacherID: teacherID,
		Subject:   p.Subject,
		Class:     p.Class,
		Status:    model.StatusPresent,
		Method:    model.MethodQRCode,
	}
	if err := s.recordOnce(ctx, &rec); err != nil {
		return model.AttendanceRecord{}, err
	}
	s.notifier.Notify(ctx, rec.StudentID, "Attendance Recorded",
		fmt.Sprintf("Your attendance has been recorded for %s via QR code.", rec.Subject),
		model.NotificationAttendance)
	return rec, nil
}

// recordOnce inserts rec unless its slot already has a record today. The
// check and the insert are separate store calls, so concurrent submissions
// for one slot can both succeed.
func (s *Service) recordOnce(ctx context.Context, rec *model.AttendanceRecord) error {
	now := s.nowFunc()
	from, to := model.DayWindow(now)
	existing, err := s.records.FindAttendanceInWindow(ctx, rec.Slot(), from, to)
	if err != nil {
		return err
	}
	if existing != nil {
		metrics.AttendanceRejected.WithLabelValues("duplicate").Inc()
		return apperr.Conflict("attendance already recorded for today")
	}
	rec.Date = now
	rec.CreatedAt = now
	if err := s.records.InsertAttendance(ctx, rec); err != nil {
		return err
	}
	metrics.AttendanceRecorded.WithLabelValues(string(rec.Method), string(rec.Status)).Inc()
	return nil
}

type GenerateQRInput struct {
	Subject string `json:"subject" validate:"required"`
	Class   string `json:"class" validate:"required"`
}

// GenerateQR issues a signed payload valid for the configured TTL.
func (s *Service) GenerateQR(teacherID string, in GenerateQRInput) (string, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", apperr.Invalid("subject and class are required")
	}
	return s.qr.Encode(QRPayload{Subject: in.Subject, Class: in.Class, TeacherID: teacherID}, s.nowFunc())
}

// AttendanceView is a record joined with the recording teacher's name.
type AttendanceView struct {
	model.AttendanceRecord
	TeacherName string `json:"teacherName"`
}

// ListForStudent returns the student's records newest first.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]AttendanceView, error) {
	recs, err := s.records.ListAttendanceForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return JoinTeachers(ctx, s.records, recs)
}

// JoinTeachers attaches teacher names to recs. Missing teachers leave the name empty.
func JoinTeachers(ctx context.Context, users interface {
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}, recs []model.AttendanceRecord) ([]AttendanceView, error) {
	ids := make([]string, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.TeacherID != "" && !seen[r.TeacherID] {
			seen[r.TeacherID] = true
			ids = append(ids, r.TeacherID)
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		teachers, err := users.UsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, t := range teachers {
			names[t.ID] = t.Name
		}
	}
	out := make([]AttendanceView, 0, len(recs))
	for _, r := range recs {
		out = append(out, AttendanceView{AttendanceRecord: r, TeacherName: names[r.TeacherID]})
	}
	return out, nil
}

// Analytics summarizes a class's attendance. from and to must be given together.
func (s *Service) Analytics(ctx context.Context, class string, from, to *time.Time) (model.AttendanceStats, error) {
	if class == "" {
		return model.AttendanceStats{}, apperr.Invalid("class is required")
	}
	if (from == nil) != (to == nil) {
		return model.AttendanceStats{}, apperr.Invalid("startDate and endDate must be given together")
	}
	if from != nil && to.Before(*from) {
		return model.AttendanceStats{}, apperr.Invalid("endDate is before startDate")
	}
	stats, err := s.records.AttendanceStats(ctx, class, from, to)
	if errors.Is(err, store.ErrNotFound) {
		return model.AttendanceStats{ByStatus: []model.StatusCount{}, Daily: []model.DailyCount{}}, nil
	}
	return stats, err
}
