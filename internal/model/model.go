package model

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleParent, RoleAdmin:
		return true
	}
	return false
}

// User is an account of any role. Student-only fields are empty for other roles.
type User struct {
	ID           string     `json:"id" bson:"_id"`
	Name         string     `json:"name" bson:"name"`
	Email        string     `json:"email" bson:"email"`
	PasswordHash string     `json:"-" bson:"password"`
	Role         Role       `json:"role" bson:"role"`
	RollNo       string     `json:"rollNo,omitempty" bson:"rollNo,omitempty"`
	DOB          *time.Time `json:"dob,omitempty" bson:"dob,omitempty"`
	Class        string     `json:"class,omitempty" bson:"class,omitempty"`
	ParentID     string     `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Children     []string   `json:"children,omitempty" bson:"children,omitempty"`
	Phone        string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Avatar       string     `json:"avatar,omitempty" bson:"avatar,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
}

// Status of a single attendance record.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Method is how an attendance record was captured.
type Method string

const (
	MethodFaceRecognition Method = "face_recognition"
	MethodQRCode          Method = "qr_code"
	MethodManual          Method = "manual"
)

func (m Method) Valid() bool {
	return m == MethodFaceRecognition || m == MethodQRCode || m == MethodManual
}

// AttendanceRecord is one student's attendance for a subject and class on a day.
type AttendanceRecord struct {
	ID                  string    `json:"id" bson:"_id"`
	StudentID           string    `json:"studentId" bson:"studentId"`
	TeacherID           string    `json:"teacherId" bson:"teacherId"`
	Subject             string    `json:"subject" bson:"subject"`
	Class               string    `json:"class" bson:"class"`
	Date                time.Time `json:"date" bson:"date"`
	Status              Status    `json:"status" bson:"status"`
	Method              Method    `json:"method" bson:"method"`
	Confidence          *float64  `json:"confidence,omitempty" bson:"confidence,omitempty"`
	CorrectionRequested bool      `json:"correctionRequested" bson:"correctionRequested"`
	CreatedAt           time.Time `json:"createdAt" bson:"createdAt"`
}

// Slot identifies the (student, subject, class) axes of the per-day uniqueness key.
type Slot struct {
	StudentID string
	Subject   string
	Class     string
}

// Slot returns the slot the record occupies.
func (r AttendanceRecord) Slot() Slot {
	return Slot{StudentID: r.StudentID, Subject: r.Subject, Class: r.Class}
}

// DayWindow returns the UTC calendar day [start, end) containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// CorrectionStatus is the state of a correction request.
type CorrectionStatus string

const (
	CorrectionPending  CorrectionStatus = "pending"
	CorrectionApproved CorrectionStatus = "approved"
	CorrectionRejected CorrectionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s CorrectionStatus) Terminal() bool {
	return s == CorrectionApproved || s == CorrectionRejected
}

// CorrectionRequest is a student's dispute against an attendance record.
type CorrectionRequest struct {
	ID           string           `json:"id" bson:"_id"`
	StudentID    string           `json:"studentId" bson:"studentId"`
	AttendanceID string           `json:"attendanceId" bson:"attendanceId"`
	Reason       string           `json:"reason" bson:"reason"`
	Description  string           `json:"description" bson:"description"`
	Evidence     string           `json:"evidence,omitempty" bson:"evidence,omitempty"`
	Status       CorrectionStatus `json:"status" bson:"status"`
	AdminNote    string           `json:"adminNote,omitempty" bson:"adminNote,omitempty"`
	CreatedAt    time.Time        `json:"createdAt" bson:"createdAt"`
	ResponseDate *time.Time       `json:"responseDate,omitempty" bson:"responseDate,omitempty"`
}

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationAttendance NotificationType = "attendance"
	NotificationAssignment NotificationType = "assignment"
	NotificationCorrection NotificationType = "correction"
	NotificationGeneral    NotificationType = "general"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAttendance, NotificationAssignment, NotificationCorrection, NotificationGeneral:
		return true
	}
	return false
}

// Notification is an in-app message for a user.
type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	UserID    string           `json:"userId" bson:"userId"`
	Title     string           `json:"title" bson:"title"`
	Message   string           `json:"message" bson:"message"`
	Type      NotificationType `json:"type" bson:"type"`
	Read      bool             `json:"read" bson:"read"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
}

// Assignment is coursework published by a teacher for a class.
type Assignment struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Subject     string     `json:"subject" bson:"subject"`
	Class       string     `json:"class" bson:"class"`
	TeacherID   string     `json:"teacherId" bson:"teacherId"`
	DueDate     *time.Time `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	MaxMarks    *int       `json:"maxMarks,omitempty" bson:"maxMarks,omitempty"`
	FilePath    string     `json:"filePath,omitempty" bson:"filePath,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
}

// Class is a named group of students with its subjects.
type Class struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Subjects  []string  `json:"subjects" bson:"subjects"`
	TeacherID string    `json:"teacherId,omitempty" bson:"teacherId,omitempty"`
	Students  []string  `json:"students" bson:"students"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// StatusCount is an aggregate row of attendance records per status.
type StatusCount struct {
	Status Status `json:"status" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}

// DailyCount is an aggregate row of attendance records per day and status.
type DailyCount struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
	Count  int64  `json:"count"`
}

// AttendanceStats summarizes a class's attendance over a date range.
type AttendanceStats struct {
	ByStatus []StatusCount `json:"attendanceData"`
	Daily    []DailyCount  `json:"dailyAttendance"`
}
