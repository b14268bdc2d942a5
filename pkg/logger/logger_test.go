package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/procscore/pkg/config"
	"github.com/srodi/procscore/pkg/types"
)

func TestNewJSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "debug", Format: "json", MaxSizeMB: 1}, &buf)
	require.NoError(t, err)
	defer l.Close()

	l.Debug().Int("pid", 42).Msg("scan started")
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"pid":42`)
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "warn", Format: "json", MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "procscore.log")
	var console bytes.Buffer
	l, err := New(config.LogConfig{Level: "info", Format: "console", File: path, MaxSizeMB: 1}, &console)
	require.NoError(t, err)

	l.Info().Msg("to file")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to file")
	assert.NotContains(t, string(content), "\x1b[", "file output must not carry colors")
	assert.Contains(t, console.String(), "to file")
}

func TestNewRedirectsStdlibLog(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "info", Format: "json", MaxSizeMB: 1}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr); log.SetFlags(log.LstdFlags) })
	_ = l

	log.Print("from stdlib")
	assert.Contains(t, buf.String(), "from stdlib")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRiskLogRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.log")
	r, err := NewRiskLog(path, 1, 1)
	require.NoError(t, err)

	r.Record(types.ProcessSample{PID: 812, Comm: "postgres", Score: 13, Tier: types.TierHigh, Priority: 20})
	require.NoError(t, r.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, float64(812), rec["pid"])
	assert.Equal(t, "High", rec["tier"])
	assert.Equal(t, "risky process", rec["message"])
	assert.Contains(t, rec, "time")
}
