package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLevels(t *testing.T) {
	defer Set(nil)

	require.NoError(t, Init("warn", false))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init("debug", true))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Init("loud", false))
}

func TestSetAndGet(t *testing.T) {
	defer Set(nil)

	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	Get().Info("scene built", zap.Int("objects", 3))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["objects"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
