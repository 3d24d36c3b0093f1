package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

// Store persists every collection in Postgres.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// New wraps an open database handle.
func New(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = store.DefaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := store.OpContext(ctx, s.timeout)
	defer cancel()
	return store.Classify("postgres ping", s.db.PingContext(ctx))
}

func (s *Store) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return store.OpContext(ctx, s.timeout)
}

func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrDuplicate
	}
	return store.Classify(op, err)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// placeholders returns "$start, $start+1, ..." for n values.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// ---------- users ----------

const userColumns = `id, name, email, password_hash, role, roll_no, dob, class, parent_id, phone, avatar, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.RollNo, &u.DOB,
		&u.Class, &u.ParentID, &u.Phone, &u.Avatar, &u.CreatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.RollNo, u.DOB, u.Class, u.ParentID, u.Phone, u.Avatar, u.CreatedAt)
	return classify("insert user", err)
}

func (s *Store) getUserWhere(ctx context.Context, op, where string, args ...any) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, args...))
	if err != nil {
		return model.User{}, classify(op, err)
	}
	children, err := s.children(ctx, u.ID)
	if err != nil {
		return model.User{}, classify(op, err)
	}
	u.Children = children
	return u, nil
}

func (s *Store) children(ctx context.Context, parentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT child_id FROM user_children WHERE parent_id = $1 ORDER BY child_id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.getUserWhere(ctx, "get user", "id = $1", id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUserWhere(ctx, "find user by email", "email = $1", email)
}

func (s *Store) FindUserByRollNo(ctx context.Context, rollNo string, dob time.Time) (model.User, error) {
	return s.getUserWhere(ctx, "find user by roll number", "roll_no = $1 AND dob = $2", rollNo, dob)
}

func (s *Store) queryUsers(ctx context.Context, op, query string, args ...any) ([]model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	return out, classify(op, rows.Err())
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{}
	if f.Role != "" {
		args = append(args, f.Role)
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Class != "" {
		args = append(args, f.Class)
		clauses = append(clauses, fmt.Sprintf("class = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name"
	return s.queryUsers(ctx, "list users", query, args...)
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(1, len(ids)) + `)`
	return s.queryUsers(ctx, "users by ids", query, stringArgs(ids)...)
}

func (s *Store) AddChild(ctx context.Context, parentID, childID string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, parentID).Scan(&one); err != nil {
		return classify("add child", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_children (parent_id, child_id)
		VALUES ($1, $2)
		ON CONFLICT (parent_id, child_id) DO NOTHING
	`, parentID, childID)
	return classify("add child", err)
}

// ---------- attendance ----------

const attendanceColumns = `id, student_id, teacher_id, subject, class, date, status, method, confidence, correction_requested, created_at`

func scanAttendance(row scanner) (model.AttendanceRecord, error) {
	var r model.AttendanceRecord
	err := row.Scan(&r.ID, &r.StudentID, &r.TeacherID, &r.Subject, &r.Class, &r.Date, &r.Status,
		&r.Method, &r.Confidence, &r.CorrectionRequested, &r.CreatedAt)
	return r, err
}

func (s *Store) queryAttendance(ctx context.Context, op, query string, args ...any) ([]model.AttendanceRecord, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	out := make([]model.AttendanceRecord, 0)
	for rows.Next() {
		r, err := scanAttendance(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, r)
	}
	return out, classify(op, rows.Err())
}

// InsertAttendance writes all records in one transaction.
func (s *Store) InsertAttendance(ctx context.Context, recs ...*model.AttendanceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("insert attendance", err)
	}
	for _, r := range recs {
		r.ID = newID(r.ID)
		r.CreatedAt = stamp(r.CreatedAt)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (`+attendanceColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, r.ID, r.StudentID, r.TeacherID, r.Subject, r.Class, r.Date, r.Status, r.Method, r.Confidence,
			r.CorrectionRequested, r.CreatedAt); err != nil {
			_ = tx.Rollback()
			return classify("insert attendance", err)
		}
	}
	return classify("insert attendance", tx.Commit())
}

func (s *Store) FindAttendanceInWindow(ctx context.Context, slot model.Slot, from, to time.Time) (*model.AttendanceRecord, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	r, err := scanAttendance(s.db.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE student_id = $1 AND subject = $2 AND class = $3 AND date >= $4 AND date < $5
		ORDER BY date DESC
		LIMIT 1
	`, slot.StudentID, slot.Subject, slot.Class, from, to))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find attendance in window", err)
	}
	return &r, nil
}

func (s *Store) GetAttendance(ctx context.Context, id string) (model.AttendanceRecord, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	r, err := scanAttendance(s.db.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, id))
	return r, classify("get attendance", err)
}

func (s *Store) AttendanceByIDs(ctx context.Context, ids []string) ([]model.AttendanceRecord, error) {
	if len(ids) == 0 {
		return []model.AttendanceRecord{}, nil
	}
	return s.queryAttendance(ctx, "attendance by ids",
		`SELECT `+attendanceColumns+` FROM attendance WHERE id IN (`+placeholders(1, len(ids))+`)`, stringArgs(ids)...)
}

func (s *Store) ListAttendanceForStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error) {
	return s.queryAttendance(ctx, "list attendance",
		`SELECT `+attendanceColumns+` FROM attendance WHERE student_id = $1 ORDER BY date DESC`, studentID)
}

func (s *Store) MarkCorrectionRequested(ctx context.Context, id string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `UPDATE attendance SET correction_requested = TRUE WHERE id = $1`, id)
	if err != nil {
		return classify("mark correction requested", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AttendanceStats(ctx context.Context, class string, from, to *time.Time) (model.AttendanceStats, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()

	where := "class = $1"
	args := []any{class}
	if from != nil && to != nil {
		where += " AND date >= $2 AND date <= $3"
		args = append(args, *from, *to)
	}

	stats := model.AttendanceStats{ByStatus: []model.StatusCount{}, Daily: []model.DailyCount{}}
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance WHERE `+where+`
		GROUP BY status ORDER BY status`, args...)
	if err != nil {
		return model.AttendanceStats{}, classify("attendance stats", err)
	}
	for rows.Next() {
		var sc model.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			rows.Close()
			return model.AttendanceStats{}, classify("attendance stats", err)
		}
		stats.ByStatus = append(stats.ByStatus, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.AttendanceStats{}, classify("attendance stats", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT to_char(date AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, status, COUNT(*)
		FROM attendance WHERE `+where+`
		GROUP BY day, status ORDER BY day, status`, args...)
	if err != nil {
		return model.AttendanceStats{}, classify("attendance daily stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc model.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Status, &dc.Count); err != nil {
			return model.AttendanceStats{}, classify("attendance daily stats", err)
		}
		stats.Daily = append(stats.Daily, dc)
	}
	return stats, classify("attendance daily stats", rows.Err())
}

// ---------- corrections ----------

const correctionColumns = `id, student_id, attendance_id, reason, description, evidence, status, admin_note, created_at, response_date`

func scanCorrection(row scanner) (model.CorrectionRequest, error) {
	var cr model.CorrectionRequest
	err := row.Scan(&cr.ID, &cr.StudentID, &cr.AttendanceID, &cr.Reason, &cr.Description, &cr.Evidence,
		&cr.Status, &cr.AdminNote, &cr.CreatedAt, &cr.ResponseDate)
	return cr, err
}

func (s *Store) queryCorrections(ctx context.Context, op, query string, args ...any) ([]model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	out := make([]model.CorrectionRequest, 0)
	for rows.Next() {
		cr, err := scanCorrection(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, cr)
	}
	return out, classify(op, rows.Err())
}

func (s *Store) InsertCorrection(ctx context.Context, cr *model.CorrectionRequest) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	cr.ID = newID(cr.ID)
	cr.CreatedAt = stamp(cr.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO correction_requests (`+correctionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, cr.ID, cr.StudentID, cr.AttendanceID, cr.Reason, cr.Description, cr.Evidence, cr.Status, cr.AdminNote,
		cr.CreatedAt, cr.ResponseDate)
	return classify("insert correction", err)
}

func (s *Store) GetCorrection(ctx context.Context, id string) (model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	cr, err := scanCorrection(s.db.QueryRowContext(ctx, `SELECT `+correctionColumns+` FROM correction_requests WHERE id = $1`, id))
	return cr, classify("get correction", err)
}

// ResolveCorrection only updates rows still pending, so the transition happens once.
func (s *Store) ResolveCorrection(ctx context.Context, id string, status model.CorrectionStatus, note string, at time.Time) (model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	cr, err := scanCorrection(s.db.QueryRowContext(ctx, `
		UPDATE correction_requests
		SET status = $2, admin_note = $3, response_date = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+correctionColumns,
		id, status, note, at))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetCorrection(ctx, id); getErr != nil {
			return model.CorrectionRequest{}, getErr
		}
		return model.CorrectionRequest{}, store.ErrNotPending
	}
	return cr, classify("resolve correction", err)
}

func (s *Store) ListCorrectionsForStudent(ctx context.Context, studentID string) ([]model.CorrectionRequest, error) {
	return s.queryCorrections(ctx, "list corrections for student",
		`SELECT `+correctionColumns+` FROM correction_requests WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
}

func (s *Store) ListCorrections(ctx context.Context) ([]model.CorrectionRequest, error) {
	return s.queryCorrections(ctx, "list corrections",
		`SELECT `+correctionColumns+` FROM correction_requests ORDER BY created_at DESC`)
}

// ---------- notifications ----------

func (s *Store) InsertNotification(ctx context.Context, n *model.Notification) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	n.ID = newID(n.ID)
	n.CreatedAt = stamp(n.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, n.ID, n.UserID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt)
	return classify("insert notification", err)
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return classify("mark notification read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, classify("list notifications", err)
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, classify("list notifications", err)
		}
		out = append(out, n)
	}
	return out, classify("list notifications", rows.Err())
}

// ---------- assignments & classes ----------

func (s *Store) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	a.ID = newID(a.ID)
	a.CreatedAt = stamp(a.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, title, description, subject, class, teacher_id, due_date, max_marks, file_path, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.Title, a.Description, a.Subject, a.Class, a.TeacherID, a.DueDate, a.MaxMarks, a.FilePath, a.CreatedAt)
	return classify("insert assignment", err)
}

func (s *Store) ListAssignmentsForClass(ctx context.Context, class string) ([]model.Assignment, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, subject, class, teacher_id, due_date, max_marks, file_path, created_at
		FROM assignments WHERE class = $1 ORDER BY created_at DESC
	`, class)
	if err != nil {
		return nil, classify("list assignments", err)
	}
	defer rows.Close()
	out := make([]model.Assignment, 0)
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Subject, &a.Class, &a.TeacherID, &a.DueDate,
			&a.MaxMarks, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, classify("list assignments", err)
		}
		out = append(out, a)
	}
	return out, classify("list assignments", rows.Err())
}

func (s *Store) InsertClass(ctx context.Context, c *model.Class) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	if c.Subjects == nil {
		c.Subjects = []string{}
	}
	if c.Students == nil {
		c.Students = []string{}
	}
	subjects, _ := json.Marshal(c.Subjects)
	students, _ := json.Marshal(c.Students)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, subjects, teacher_id, students, created_at)
		VALUES ($1, $2, $3::jsonb, $4, $5::jsonb, $6)
	`, c.ID, c.Name, string(subjects), c.TeacherID, string(students), c.CreatedAt)
	return classify("insert class", err)
}

func (s *Store) ListClasses(ctx context.Context) ([]model.Class, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, subjects, teacher_id, students, created_at FROM classes ORDER BY name
	`)
	if err != nil {
		return nil, classify("list classes", err)
	}
	defer rows.Close()
	out := make([]model.Class, 0)
	for rows.Next() {
		var (
			c                  model.Class
			subjects, students []byte
		)
		if err := rows.Scan(&c.ID, &c.Name, &subjects, &c.TeacherID, &students, &c.CreatedAt); err != nil {
			return nil, classify("list classes", err)
		}
		if err := json.Unmarshal(subjects, &c.Subjects); err != nil {
			return nil, classify("decode class subjects", err)
		}
		if err := json.Unmarshal(students, &c.Students); err != nil {
			return nil, classify("decode class students", err)
		}
		out = append(out, c)
	}
	return out, classify("list classes", rows.Err())
}
