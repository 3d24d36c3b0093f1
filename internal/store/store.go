// Package store declares the Record Store contracts. Backends live in the
// mongostore, pgstore and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"smartattendance/internal/model"
)

var (
	ErrNotFound   = errors.New("store: not found")
	ErrDuplicate  = errors.New("store: duplicate key")
	ErrNotPending = errors.New("store: correction request already resolved")
)

// UserFilter narrows ListUsers. Empty fields match everything.
type UserFilter struct {
	Role  model.Role
	Class string
}

type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByRollNo(ctx context.Context, rollNo string, dob time.Time) (model.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	AddChild(ctx context.Context, parentID, childID string) error
}

type Attendance interface {
	InsertAttendance(ctx context.Context, recs ...*model.AttendanceRecord) error
	// FindAttendanceInWindow returns nil, nil when the slot has no record in [from, to).
	FindAttendanceInWindow(ctx context.Context, slot model.Slot, from, to time.Time) (*model.AttendanceRecord, error)
	GetAttendance(ctx context.Context, id string) (model.AttendanceRecord, error)
	AttendanceByIDs(ctx context.Context, ids []string) ([]model.AttendanceRecord, error)
	ListAttendanceForStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error)
	MarkCorrectionRequested(ctx context.Context, id string) error
	AttendanceStats(ctx context.Context, class string, from, to *time.Time) (model.AttendanceStats, error)
}

type Corrections interface {
	InsertCorrection(ctx context.Context, cr *model.CorrectionRequest) error
	GetCorrection(ctx context.Context, id string) (model.CorrectionRequest, error)
	// ResolveCorrection moves a pending request to status. It returns
	// ErrNotFound for unknown ids and ErrNotPending when already resolved.
	ResolveCorrection(ctx context.Context, id string, status model.CorrectionStatus, note string, at time.Time) (model.CorrectionRequest, error)
	ListCorrectionsForStudent(ctx context.Context, studentID string) ([]model.CorrectionRequest, error)
	ListCorrections(ctx context.Context) ([]model.CorrectionRequest, error)
}

type Notifications interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	MarkNotificationRead(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
}

type Assignments interface {
	InsertAssignment(ctx context.Context, a *model.Assignment) error
	ListAssignmentsForClass(ctx context.Context, class string) ([]model.Assignment, error)
}

type Classes interface {
	InsertClass(ctx context.Context, c *model.Class) error
	ListClasses(ctx context.Context) ([]model.Class, error)
}

// Store is the full Record Store, shared process-wide.
type Store interface {
	Users
	Attendance
	Corrections
	Notifications
	Assignments
	Classes
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
