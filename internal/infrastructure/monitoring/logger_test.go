package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/courierd/courierd/internal/config"
)

func TestZapLogger_SetLevel(t *testing.T) {
	log, err := NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	assert.False(t, log.level.Enabled(zapcore.DebugLevel))

	log.SetLevel("debug")
	assert.True(t, log.level.Enabled(zapcore.DebugLevel))

	// Derived loggers share the same atomic level.
	derived, ok := log.WithComponent("test").(*ZapLogger)
	require.True(t, ok)
	assert.True(t, derived.level.Enabled(zapcore.DebugLevel))

	// Garbage levels leave the current level untouched.
	log.SetLevel("not-a-level")
	assert.True(t, log.level.Enabled(zapcore.DebugLevel))
}

func TestZapLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := NewZapLogger(&config.LogConfig{Level: "bogus", Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.level.Enabled(zapcore.DebugLevel))
	assert.True(t, log.level.Enabled(zapcore.InfoLevel))
}
