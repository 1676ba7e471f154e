package applog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ResolveLevel(true, false))
	assert.Equal(t, slog.LevelError, ResolveLevel(false, true))
	assert.Equal(t, slog.LevelInfo, ResolveLevel(false, false))
	assert.Equal(t, slog.LevelDebug, ResolveLevel(true, true))
}

func TestResolveFormatDefaultText(t *testing.T) {
	t.Setenv("REPO_MCP_LOG_FORMAT", "")
	assert.Equal(t, "text", ResolveFormat())
}

func TestResolveFormatJSON(t *testing.T) {
	t.Setenv("REPO_MCP_LOG_FORMAT", "JSON")
	assert.Equal(t, "json", ResolveFormat())
}

func TestSetupWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter(slog.LevelInfo, "json", &buf)
	New("index").Info("refresh complete", "added", 3)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.True(t, strings.Contains(out, `"component":"index"`))
	assert.True(t, strings.Contains(out, `"added":3`))
}

func TestSetupWithWriterTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter(slog.LevelError, "text", &buf)
	New("bundle").Info("this should be filtered")
	assert.Empty(t, buf.String())

	New("bundle").Error("this should appear")
	assert.Contains(t, buf.String(), "this should appear")
}
