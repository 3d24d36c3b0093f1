// Package correction implements the correction-request workflow: students
// dispute attendance records and admins approve or reject the disputes.
package correction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"smartattendance/internal/apperr"
	"smartattendance/internal/auth"
	"smartattendance/internal/metrics"
	"smartattendance/internal/model"
	"smartattendance/internal/notify"
	"smartattendance/internal/store"
)

// Records is the slice of the Record Store the workflow needs.
type Records interface {
	store.Corrections
	GetAttendance(ctx context.Context, id string) (model.AttendanceRecord, error)
	AttendanceByIDs(ctx context.Context, ids []string) ([]model.AttendanceRecord, error)
	MarkCorrectionRequested(ctx context.Context, id string) error
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

type Service struct {
	records  Records
	notifier notify.Notifier
	validate *validator.Validate
	nowFunc  func() time.Time
}

func NewService(records Records, notifier notify.Notifier) *Service {
	return &Service{
		records:  records,
		notifier: notifier,
		validate: validator.New(),
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

type FileInput struct {
	AttendanceID string `json:"attendanceId" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Evidence     string `json:"evidence"`
}

// File opens a pending request against one of the student's own records.
func (s *Service) File(ctx context.Context, studentID string, in FileInput) (model.CorrectionRequest, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return model.CorrectionRequest{}, apperr.Invalid("attendanceId, reason and description are required")
	}
	rec, err := s.records.GetAttendance(ctx, in.AttendanceID)
	if errors.Is(err, store.ErrNotFound) {
		return model.CorrectionRequest{}, apperr.NotFound("attendance record not found")
	}
	if err != nil {
		return model.CorrectionRequest{}, err
	}
	if rec.StudentID != studentID {
		return model.CorrectionRequest{}, apperr.Forbidden("attendance record belongs to another student")
	}

	cr := model.CorrectionRequest{
		StudentID:    studentID,
		AttendanceID: in.AttendanceID,
		Reason:       in.Reason,
		Description:  in.Description,
		Evidence:     in.Evidence,
		Status:       model.CorrectionPending,
		CreatedAt:    s.nowFunc(),
	}
	if err := s.records.InsertCorrection(ctx, &cr); err != nil {
		return model.CorrectionRequest{}, err
	}
	if err := s.records.MarkCorrectionRequested(ctx, in.AttendanceID); err != nil {
		return model.CorrectionRequest{}, err
	}
	metrics.CorrectionsFiled.Inc()
	return cr, nil
}

type ResolveInput struct {
	Status    model.CorrectionStatus `json:"status"`
	AdminNote string                 `json:"adminNote"`
}

// Resolve moves a pending request to approved or rejected. Only admins may
// resolve, and a request is resolved at most once.
func (s *Service) Resolve(ctx context.Context, caller auth.Identity, id string, in ResolveInput) (model.CorrectionRequest, error) {
	if err := auth.Require(caller, model.RoleAdmin); err != nil {
		return model.CorrectionRequest{}, err
	}
	if !in.Status.Terminal() {
		return model.CorrectionRequest{}, apperr.Invalid("status must be approved or rejected")
	}
	note := strings.TrimSpace(in.AdminNote)
	cr, err := s.records.ResolveCorrection(ctx, id, in.Status, note, s.nowFunc())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.CorrectionRequest{}, apperr.NotFound("correction request not found")
	case errors.Is(err, store.ErrNotPending):
		return model.CorrectionRequest{}, apperr.Conflict("correction request already resolved")
	case err != nil:
		return model.CorrectionRequest{}, err
	}
	metrics.CorrectionsResolved.WithLabelValues(string(cr.Status)).Inc()

	msg := "Your correction request has been " + string(cr.Status) + "."
	if note != "" {
		msg += " " + note
	}
	s.notifier.Notify(ctx, cr.StudentID, "Correction Request Update", msg, model.NotificationCorrection)
	return cr, nil
}

// View is a request joined with its attendance record and student.
type View struct {
	model.CorrectionRequest
	Attendance    *model.AttendanceRecord `json:"attendance,omitempty"`
	StudentName   string                  `json:"studentName,omitempty"`
	StudentRollNo string                  `json:"studentRollNo,omitempty"`
}

// ListForStudent returns the student's requests newest first.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]View, error) {
	crs, err := s.records.ListCorrectionsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, crs, false)
}

// ListAll returns every request newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, caller auth.Identity) ([]View, error) {
	if err := auth.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	crs, err := s.records.ListCorrections(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, crs, true)
}

func (s *Service) join(ctx context.Context, crs []model.CorrectionRequest, withStudents bool) ([]View, error) {
	attIDs := make([]string, 0, len(crs))
	studentIDs := make([]string, 0, len(crs))
	seen := make(map[string]bool, len(crs))
	for _, cr := range crs {
		attIDs = append(attIDs, cr.AttendanceID)
		if withStudents && !seen[cr.StudentID] {
			seen[cr.StudentID] = true
			studentIDs = append(studentIDs, cr.StudentID)
		}
	}

	records := map[string]model.AttendanceRecord{}
	if len(attIDs) > 0 {
		recs, err := s.records.AttendanceByIDs(ctx, attIDs)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			records[r.ID] = r
		}
	}
	students := map[string]model.User{}
	if len(studentIDs) > 0 {
		users, err := s.records.UsersByIDs(ctx, studentIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			students[u.ID] = u
		}
	}

	out := make([]View, 0, len(crs))
	for _, cr := range crs {
		v := View{CorrectionRequest: cr}
		if r, ok := records[cr.AttendanceID]; ok {
			v.Attendance = &r
		}
		if u, ok := students[cr.StudentID]; ok {
			v.StudentName = u.Name
			v.StudentRollNo = u.RollNo
		}
		out = append(out, v)
	}
	return out, nil
}
