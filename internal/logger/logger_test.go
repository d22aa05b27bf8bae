package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNewWithOptions_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		log := NewWithOptions(&bytes.Buffer{}, FormatJSON, tt.level)
		if log.GetLevel() != tt.want {
			t.Errorf("level %q: expected %s, got %s", tt.level, tt.want, log.GetLevel())
		}
	}
}

func TestNewWithOptions_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithOptions(buf, FormatJSON, "info")

	log.Info().Str("status", "PENDING").Msg("batch fetched")
	log.Debug().Msg("filtered out")

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("Expected JSON output, got: %s", output)
	}
	if !strings.Contains(output, `"status":"PENDING"`) {
		t.Errorf("Expected status field, got: %s", output)
	}
	if strings.Contains(output, "filtered out") {
		t.Errorf("Debug entry should be filtered at info level, got: %s", output)
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	lg := FromContext(ctx)
	lg.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	ctx = WithRun(ctx, "run-123")
	lg := FromContext(ctx)
	lg.Info().Msg("consolidated")

	if !strings.Contains(buf.String(), `"run_id":"run-123"`) {
		t.Errorf("Expected run_id field, got: %s", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"record_type": "EXPENSE",
		"batches":     7,
	})

	log.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"record_type":"EXPENSE"`) {
		t.Errorf("Expected record_type field, got: %s", output)
	}
	if !strings.Contains(output, `"batches":7`) {
		t.Errorf("Expected batches field, got: %s", output)
	}
}
