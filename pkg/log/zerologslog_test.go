package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
)

func TestHandlerWritesAttrsIntoZerologJSON(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := NewSlogLogger(zl)

	logger.With("component", "worker").Info("claimed command", "uid", "abc123", "exit_code", 0)

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v, line=%q", err, buf.String())
	}
	if decoded["component"] != "worker" {
		t.Fatalf("expected component=worker, got %v", decoded["component"])
	}
	if decoded["uid"] != "abc123" {
		t.Fatalf("expected uid=abc123, got %v", decoded["uid"])
	}
	if decoded["message"] != "claimed command" {
		t.Fatalf("expected message, got %v", decoded["message"])
	}
}

func TestHandlerEnabledRespectsZerologLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.WarnLevel)
	logger := NewSlogLogger(zl)

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info-level record to be filtered, got %q", buf.String())
	}

	logger.Warn("should pass")
	if buf.Len() == 0 {
		t.Fatalf("expected warn-level record to pass through")
	}
}
