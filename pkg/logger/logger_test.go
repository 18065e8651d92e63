package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel), "debug should be disabled at the default info level")
}

func TestInitReplacesGlobal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spawnpool.log")
	require.NoError(t, Init(Config{Level: "debug", OutputPaths: []string{out}}))

	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	ctx := context.WithValue(context.Background(), SceneKey, "Arena")
	ctx = context.WithValue(ctx, FrameKey, 3)
	WithContext(ctx, nil).Debug("scene loaded")
	assert.NoError(t, Sync())
}

func TestWithContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := context.WithValue(context.Background(), SceneKey, "Arena")
	ctx = context.WithValue(ctx, FrameKey, 7)
	WithContext(ctx, base).Info("spawn failed")
	WithContext(context.Background(), base).Info("no context")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"scene": "Arena", "frame": int64(7)}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
}

func TestContextFieldsIgnoresWrongTypes(t *testing.T) {
	ctx := context.WithValue(context.Background(), FrameKey, "seven")
	assert.Empty(t, ContextFields(ctx))
}
