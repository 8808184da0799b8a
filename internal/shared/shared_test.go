package shared

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name    string
		level   string
		want    log.Level
		wantErr bool
	}{
		{name: "empty defaults to info", level: "", want: log.InfoLevel},
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "mixed case", level: "WaRn", want: log.WarnLevel},
		{name: "unknown", level: "chatty", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		logger.Info("hello", "video_id", "abc123")

		out := buf.String()
		for _, want := range []string{"hello", "component=test", "video_id=abc123"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected log output to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("file logger appends and creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "warm.log")
		logger, closer, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
		logger.Info("first")
		closer.Close()

		logger, closer, err = NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() reopen error = %v", err)
		}
		logger.Info("second")
		closer.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log: %v", err)
		}
		if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
			t.Errorf("expected both entries, got %q", data)
		}
	})

	t.Run("SetLogLevel filters lower levels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("hidden")

		if buf.Len() != 0 {
			t.Errorf("expected no output below warn level, got %q", buf.String())
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected UUID string of length 36, got %d", len(a))
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("abc123"); got != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("WatchURL() = %s", got)
	}
}
