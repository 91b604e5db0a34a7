package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"codeberg.org/mutker/viturectl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(WarnLevel)
	t.Cleanup(func() { SetLogLevel(DebugLevel) })

	Debug().Msg("hidden")
	Info().Msg("hidden")
	Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, Enabled(InfoLevel))
	assert.True(t, Enabled(ErrorLevel))
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(DebugLevel)

	err := errors.New().Wrap(errors.ErrSendCommands, fmt.Errorf("connection refused"))
	ErrorWithCode(err).Msg("one-shot failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "send_commands_failed", entry["error_code"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "one-shot failed", entry["message"])
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(DebugLevel)

	Default().Info().Str("component", "test").Msg("hello")
	assert.Contains(t, buf.String(), `"component":"test"`)
}
