// Package logger builds the zap loggers shared by the API server and the
// batch migration CLI.
package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("production logs at info", func(t *testing.T) {
		log, err := New(ModeProduction)
		require.NoError(t, err)

		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("development logs at debug", func(t *testing.T) {
		for _, mode := range []string{"", "dev", "Development"} {
			log, err := New(mode)
			require.NoError(t, err, mode)
			assert.True(t, log.Core().Enabled(zapcore.DebugLevel), mode)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := New("verbose")
		assert.ErrorContains(t, err, "unknown log mode")
	})
}

func TestNop(t *testing.T) {
	assert.False(t, Nop().Core().Enabled(zapcore.ErrorLevel))
}
