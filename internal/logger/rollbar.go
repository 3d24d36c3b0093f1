package logger

import (
	"log"

	"github.com/rollbar/rollbar-go"
)

// RollbarConfig identifies the deployment reporting to Rollbar.
type RollbarConfig struct {
	Token   string
	Env     string
	Host    string
	Version string
}

// RollbarLogger prints like StdLogger and reports warnings and errors to Rollbar.
type RollbarLogger struct {
	std *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbar(std *log.Logger, conf RollbarConfig) *RollbarLogger {
	rollbar.SetToken(conf.Token)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Host)
	rollbar.SetCodeVersion(conf.Version)
	return &RollbarLogger{std: NewStd(std)}
}

// New picks the Rollbar logger when a token is configured.
func New(std *log.Logger, conf RollbarConfig) Logger {
	if conf.Token == "" {
		return NewStd(std)
	}
	return NewRollbar(std, conf)
}

func (l *RollbarLogger) Info(msg string, args ...any) {
	l.std.Info(msg, args...)
}

func (l *RollbarLogger) Warn(msg string, args ...any) {
	rollbar.Warning(append([]any{msg}, args...)...)
	l.std.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...any) {
	rollbar.Error(append([]any{msg}, args...)...)
	l.std.Error(msg, args...)
}

// Close flushes queued reports.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}
