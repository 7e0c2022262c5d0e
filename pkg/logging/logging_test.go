package logging

import (
	"bytes"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestInitLevels(t *testing.T) {
	t.Setenv("mode", "")
	var buf bytes.Buffer

	require.NoError(t, Init(&buf, "warn"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	logrus.Info("hidden")
	logrus.Warn("Camera busy")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "Camera busy")

	require.NoError(t, Init(&buf, ""))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(&bytes.Buffer{}, "loud"))
}

func TestInitDevModeForcesDebug(t *testing.T) {
	t.Setenv("mode", "dev")
	require.NoError(t, Init(&bytes.Buffer{}, "error"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSlogBridgeWritesThroughLogrus(t *testing.T) {
	t.Setenv("mode", "")
	var buf bytes.Buffer
	require.NoError(t, Init(&buf, "info"))

	Slog().Info("broker started", "listener", "t1")
	assert.Contains(t, buf.String(), "broker started")
	assert.Contains(t, buf.String(), "t1")
}
