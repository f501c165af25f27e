package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	defer func() { InfoLogger, FatalLogger = zap.NewNop(), zap.NewNop() }()

	_, err := Init("loud")
	assert.Error(t, err)

	l, err := Init("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.Same(t, l, InfoLogger)
}

func TestNopBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug("x=%d", 1)
		Info("x=%d", 1)
		Warn("x=%d", 1)
		Error("x=%d", 1)
	})
}
