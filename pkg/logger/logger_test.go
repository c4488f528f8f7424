package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init("debug", "console"))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("warn", "json"))
	assert.False(t, L().Core().Enabled(zapcore.InfoLevel))

	// 非法级别回退到 info
	require.NoError(t, Init("loud", "json"))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestPackageLevelHelpers(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })

	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))

	Debug("hidden")
	Info("cache invalidated", zap.String("pattern", "questions:page=*"))
	With(zap.String("component", "reconciler")).Warn("resubscribing")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "questions:page=*", entries[0].ContextMap()["pattern"])
	assert.Equal(t, "reconciler", entries[1].ContextMap()["component"])

	Set(nil)
	assert.NotPanics(t, func() { Info("dropped") })
}
