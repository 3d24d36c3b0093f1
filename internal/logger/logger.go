// Package logger is the application's logging seam: std log lines, optionally
// mirrored to Rollbar.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is implemented by every log backend.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	// Error records an infrastructure failure. args may include an error and
	// a map[string]any of extra fields.
	Error(msg string, args ...any)
}

// StdLogger writes to a standard library logger.
type StdLogger struct {
	std *log.Logger
}

var _ Logger = (*StdLogger)(nil)

func NewStd(std *log.Logger) *StdLogger {
	if std == nil {
		std = log.New(os.Stderr, "", log.LstdFlags|log.LUTC)
	}
	return &StdLogger{std: std}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *StdLogger {
	return &StdLogger{std: log.New(io.Discard, "", 0)}
}

func (l *StdLogger) print(level, msg string, args []any) {
	line := "[" + level + "] " + msg
	for _, arg := range args {
		line += fmt.Sprintf(" %+v", arg)
	}
	l.std.Println(line)
}

func (l *StdLogger) Info(msg string, args ...any)  { l.print("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...any)  { l.print("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...any) { l.print("ERROR", msg, args) }
