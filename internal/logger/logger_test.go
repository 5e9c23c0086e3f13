package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	dev, err := New("", "")
	require.NoError(t, err)
	require.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := New("production", "")
	require.NoError(t, err)
	require.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	require.True(t, prod.Core().Enabled(zapcore.InfoLevel))

	quiet, err := New("production", "warn")
	require.NoError(t, err)
	require.False(t, quiet.Core().Enabled(zapcore.InfoLevel))

	_, err = New("development", "not-a-level")
	require.NoError(t, err)
}
