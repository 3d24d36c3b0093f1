package logger

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewStd(log.New(&buf, "", 0))

	l.Info("server started", ":5000")
	l.Warn("relay skipped")
	l.Error("store failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[INFO] server started :5000")
	assert.Contains(t, out, "[WARN] relay skipped")
	assert.Contains(t, out, "[ERROR] store failed boom")
}

func TestNewWithoutTokenIsStd(t *testing.T) {
	_, ok := New(nil, RollbarConfig{}).(*StdLogger)
	assert.True(t, ok)
}
