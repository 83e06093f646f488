package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONWithModule(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "json")
	require.NoError(t, err)
	Module(logger, "export").Debug("collection export", "files", 4)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "export", rec["module"])
	assert.Equal(t, "collection export", rec["msg"])
	assert.Equal(t, float64(4), rec["files"])
}

func TestNewTextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "WARN", "text")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=shown"))
}

func TestRejectsBadSettings(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "text")
	require.Error(t, err)
	_, err = New(&bytes.Buffer{}, "info", "xml")
	require.Error(t, err)

	lvl, err := ParseLevel(" error ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, lvl)
	assert.NotNil(t, Module(nil, "x"))
}
