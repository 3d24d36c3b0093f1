// Package pgstore is the Postgres Record Store, reached through database/sql and pgx.
package pgstore

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"smartattendance/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	roll_no       TEXT NOT NULL DEFAULT '',
	dob           TIMESTAMPTZ,
	class         TEXT NOT NULL DEFAULT '',
	parent_id     TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	avatar        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_roll_no ON users(roll_no);

CREATE TABLE IF NOT EXISTS user_children (
	parent_id TEXT NOT NULL REFERENCES users(id),
	child_id  TEXT NOT NULL,
	PRIMARY KEY (parent_id, child_id)
);

CREATE TABLE IF NOT EXISTS attendance (
	id                   TEXT PRIMARY KEY,
	student_id           TEXT NOT NULL,
	teacher_id           TEXT NOT NULL,
	subject              TEXT NOT NULL,
	class                TEXT NOT NULL,
	date                 TIMESTAMPTZ NOT NULL,
	status               TEXT NOT NULL,
	method               TEXT NOT NULL,
	confidence           DOUBLE PRECISION,
	correction_requested BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_attendance_slot ON attendance(student_id, subject, class, date DESC);
CREATE INDEX IF NOT EXISTS idx_attendance_class_date ON attendance(class, date);

CREATE TABLE IF NOT EXISTS correction_requests (
	id            TEXT PRIMARY KEY,
	student_id    TEXT NOT NULL,
	attendance_id TEXT NOT NULL,
	reason        TEXT NOT NULL,
	description   TEXT NOT NULL,
	evidence      TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	admin_note    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	response_date TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_corrections_student ON correction_requests(student_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	type       TEXT NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS assignments (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL,
	class       TEXT NOT NULL,
	teacher_id  TEXT NOT NULL,
	due_date    TIMESTAMPTZ,
	max_marks   INTEGER,
	file_path   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_assignments_class ON assignments(class, created_at DESC);

CREATE TABLE IF NOT EXISTS classes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	subjects   JSONB NOT NULL DEFAULT '[]',
	teacher_id TEXT NOT NULL DEFAULT '',
	students   JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Open creates a pooled Postgres connection, pings it and applies the schema.
func Open(ctx context.Context, connString string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := New(db, timeout)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	migrateCtx, cancel := store.OpContext(ctx, 2*s.timeout)
	defer cancel()
	if _, err := db.ExecContext(migrateCtx, schema); err != nil {
		_ = db.Close()
		return nil, store.Classify("postgres migrate", err)
	}
	return s, nil
}
