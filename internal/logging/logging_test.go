package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Debug().Str("kind", "use").Msg("statement handled")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid JSON line: %v\n%s", err, buf.String())
	}
	if line["kind"] != "use" || line["message"] != "statement handled" || line["level"] != "debug" {
		t.Errorf("unexpected line: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("line has no timestamp")
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "error", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Warn().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("warn written at error level: %s", buf.String())
	}
	log.Error().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("error line missing: %s", buf.String())
	}
}

func TestNewConsoleIsPlainForBuffers(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "info", Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info().Str("database", "shop").Msg("ready")
	out := buf.String()
	if !strings.Contains(out, "ready") || !strings.Contains(out, "database=shop") {
		t.Errorf("console output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("console output to a buffer is colored: %q", out)
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LogConfig
	}{
		{"level", config.LogConfig{Level: "loud", Format: "json"}},
		{"format", config.LogConfig{Level: "info", Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, &bytes.Buffer{}); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.ErrorLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"disabled", zerolog.Disabled},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	w, closeFn, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if w != os.Stderr {
		t.Error("Open(\"\") should return stderr")
	}
	if err := closeFn(); err != nil {
		t.Errorf("close stderr: %v", err)
	}

	path := filepath.Join(t.TempDir(), "logs", "toydb.log")
	w, closeFn, err = Open(path)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", path, err)
	}
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatal(err)
	}
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line\n" {
		t.Errorf("log file = %q", data)
	}
}
