package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_EmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf)

	logger.Info("hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["key"] != "value" {
		t.Fatalf("unexpected log record: %v", record)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", &buf)

	logger.Debug("too quiet")
	logger.Info("still too quiet")
	logger.Warn("loud enough")

	lines := strings.TrimSpace(buf.String())
	if strings.Contains(lines, "too quiet") {
		t.Fatalf("expected debug/info suppressed at warn level, got %q", lines)
	}
	if !strings.Contains(lines, "loud enough") {
		t.Fatalf("expected warn entry, got %q", lines)
	}
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != parseLevel("info") {
		t.Fatalf("expected unknown level to fall back to info, got %v", got)
	}
}

func TestComponent_TagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).Component("dedup")

	logger.Info("ready")

	if !strings.Contains(buf.String(), `"component":"dedup"`) {
		t.Fatalf("expected component tag, got %q", buf.String())
	}
}
