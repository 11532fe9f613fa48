package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Level: "shout"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)

	l, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l.Info("sink blocked frame", "frame", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sink blocked frame", rec["msg"])
	assert.Equal(t, "abc", rec["frame"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	require.NoError(t, err)

	l.Info("invisible")
	l.Warn("visible")
	out := buf.String()
	assert.NotContains(t, out, "invisible")
	assert.Contains(t, out, "visible")
}

func TestTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l := Default()
	require.NoError(t, l.OpenTrace(path))
	// A second open keeps the first file.
	require.NoError(t, l.OpenTrace(path))

	l.Trace("executed epilogue", "op", "projection")
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "executed epilogue"))
}
