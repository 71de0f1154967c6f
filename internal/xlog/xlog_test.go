package xlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, LevelWarn)
	l.Debug("debug message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("expected debug message to be filtered out at LevelWarn")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("expected warn message to be logged")
	}
	if !strings.Contains(out, "error message") {
		t.Error("expected error message to be logged")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Warn("should not panic")
}
