package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thadeucbr/mcp-tools/middleware"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{Level: "info"})
	require.NoError(t, err)

	logger.Info("request completed",
		middleware.F("method", "tools/call"),
		middleware.F("code", -32601),
		middleware.F("ok", true),
		middleware.F("duration", 1500*time.Millisecond),
	)
	logger.Error("tool failed", middleware.F("error", errors.New("boom")))
	logger.Debug("hidden")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "request completed", entries[0]["message"])
	assert.Equal(t, "tools/call", entries[0]["method"])
	assert.Equal(t, -32601.0, entries[0]["code"])
	assert.Equal(t, true, entries[0]["ok"])
	assert.Contains(t, entries[0], "duration")
	assert.Contains(t, entries[0], "time")

	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{Level: "DEBUG"})
	require.NoError(t, err)

	logger.Debug("visible")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{})
	require.NoError(t, err)

	logger.With(middleware.F("component", "meal")).Warn("slow store")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "meal", entries[0]["component"])
	assert.Equal(t, "warn", entries[0]["level"])
}

func TestLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{Format: "console"})
	require.NoError(t, err)

	logger.Info("started", middleware.F("transport", "stdio"))
	assert.Contains(t, buf.String(), "started")
	assert.Contains(t, buf.String(), "transport=")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(nil, Config{Format: "xml"})
	assert.Error(t, err)
}
