package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_UsesInitConfiguration(t *testing.T) {
	ForTestsOnlyResetLogger()

	var buf bytes.Buffer
	Init(slog.LevelDebug, &buf)

	logger := GetLogger()
	require.NotNil(t, logger)

	logger.Debug("test message")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "msg=\"test message\"")
}

func TestGetLogger_DefaultsWithoutInit(t *testing.T) {
	ForTestsOnlyResetLogger()

	logger := GetLogger()
	require.NotNil(t, logger, "GetLogger must self-initialize when nothing called Init")
}

func TestInit_FirstCallWins(t *testing.T) {
	ForTestsOnlyResetLogger()

	var buf1 bytes.Buffer
	Init(slog.LevelDebug, &buf1)
	GetLogger().Debug("first init")
	assert.True(t, strings.Contains(buf1.String(), "first init"))

	var buf2 bytes.Buffer
	Init(slog.LevelError, &buf2)
	GetLogger().Debug("second init should be ignored")
	assert.Empty(t, buf2.String())
	assert.Contains(t, buf1.String(), "second init should be ignored")
}
