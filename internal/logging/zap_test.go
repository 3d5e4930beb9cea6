package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_WritesLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg")
	log.Info(ctx, "inf", "user", "7")
	log.With("module", "backup").Warn(ctx, "wrn")
	log.Error(ctx, "err", "n", 3)

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "7", entries[1].ContextMap()["user"])
	assert.Equal(t, "backup", entries[2].ContextMap()["module"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.EqualValues(t, 3, entries[3].ContextMap()["n"])
}

func TestNewZap_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, sync, err := NewZap("nonsense")
	require.NoError(t, err)
	defer sync()
	require.NotNil(t, l)
}
