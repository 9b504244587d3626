package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "")
	logger.Debug("hello", "phone", "+91******3210")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
}

func TestNewTextAndLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "loud", "text")
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug should be filtered at the info fallback level")
	}
	if !strings.Contains(out, "msg=shown") {
		t.Fatalf("expected text handler output, got %q", out)
	}
}
