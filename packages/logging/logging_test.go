package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptionsLevel(t *testing.T) {
	assert.Equal(t, zap.InfoLevel, Options{}.level())
	assert.Equal(t, zap.DebugLevel, Options{Verbose: true}.level())
	assert.Equal(t, zap.WarnLevel, Options{Quiet: true}.level())
	assert.Equal(t, zap.DebugLevel, Options{Verbose: true, Quiet: true}.level())
}

func TestNew(t *testing.T) {
	for _, o := range []Options{{}, {JSON: true}, {JSON: true, Quiet: true}} {
		log, err := New(o)
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.Equal(t, o.level() == zap.DebugLevel, log.Core().Enabled(zap.DebugLevel))
	}

	log, err := New(Options{JSON: true, Quiet: true})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))
}
