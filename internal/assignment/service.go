// Package assignment publishes coursework to classes.
package assignment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"smartattendance/internal/apperr"
	"smartattendance/internal/logger"
	"smartattendance/internal/model"
	"smartattendance/internal/notify"
	"smartattendance/internal/store"
)

// MaxFileSize bounds an uploaded assignment file.
const MaxFileSize = 10 << 20

var allowedExt = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".jpg": true, ".jpeg": true, ".png": true,
}

// FileStore persists an uploaded file and returns an opaque path for it.
type FileStore interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
}

// Upload is a file attached to a new assignment.
type Upload struct {
	Filename string
	Data     []byte
}

type Records interface {
	store.Assignments
	ListUsers(ctx context.Context, f store.UserFilter) ([]model.User, error)
}

type Service struct {
	records  Records
	files    FileStore
	notifier notify.Notifier
	log      logger.Logger
	validate *validator.Validate
}

// NewService builds the service. A nil files store rejects uploads.
func NewService(records Records, files FileStore, notifier notify.Notifier, log logger.Logger) *Service {
	return &Service{records: records, files: files, notifier: notifier, log: log, validate: validator.New()}
}

type CreateInput struct {
	Title       string     `json:"title" form:"title" validate:"required"`
	Description string     `json:"description" form:"description"`
	Subject     string     `json:"subject" form:"subject" validate:"required"`
	Class       string     `json:"class" form:"class" validate:"required"`
	DueDate     *time.Time `json:"dueDate" form:"dueDate" time_format:"2006-01-02"`
	MaxMarks    *int       `json:"maxMarks" form:"maxMarks" validate:"omitempty,gte=0"`
}

// Create stores the assignment, uploading file first when given, and tells
// the class's students about it.
func (s *Service) Create(ctx context.Context, teacherID string, in CreateInput, file *Upload) (model.Assignment, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.Assignment{}, apperr.Invalid("title, subject and class are required")
	}
	a := model.Assignment{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Subject:     in.Subject,
		Class:       in.Class,
		TeacherID:   teacherID,
		DueDate:     in.DueDate,
		MaxMarks:    in.MaxMarks,
	}
	if file != nil {
		path, err := s.storeFile(ctx, *file)
		if err != nil {
			return model.Assignment{}, err
		}
		a.FilePath = path
	}
	if err := s.records.InsertAssignment(ctx, &a); err != nil {
		return model.Assignment{}, err
	}
	s.announce(ctx, a)
	return a, nil
}

func (s *Service) storeFile(ctx context.Context, f Upload) (string, error) {
	if s.files == nil {
		return "", apperr.Invalid("file uploads are not configured")
	}
	if len(f.Data) == 0 || len(f.Data) > MaxFileSize {
		return "", apperr.Invalid("file must be between 1 byte and 10MB")
	}
	if !allowedExt[strings.ToLower(filepath.Ext(f.Filename))] {
		return "", apperr.Invalid("only pdf, doc, docx, txt, jpg and png files are allowed")
	}
	path, err := s.files.Store(ctx, filepath.Base(f.Filename), f.Data)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnavailable, "file store unavailable", err)
	}
	return path, nil
}

func (s *Service) announce(ctx context.Context, a model.Assignment) {
	students, err := s.records.ListUsers(ctx, store.UserFilter{Role: model.RoleStudent, Class: a.Class})
	if err != nil {
		s.log.Warn("assignment announcement skipped", err, map[string]any{"assignmentId": a.ID})
		return
	}
	msg := fmt.Sprintf("A new %s assignment has been posted: %s", a.Subject, a.Title)
	for _, st := range students {
		s.notifier.Notify(ctx, st.ID, "New Assignment", msg, model.NotificationAssignment)
	}
}

// ListForClass returns the class's assignments newest first.
func (s *Service) ListForClass(ctx context.Context, class string) ([]model.Assignment, error) {
	if class == "" {
		return nil, apperr.Invalid("class is required")
	}
	return s.records.ListAssignmentsForClass(ctx, class)
}
