package logging_test

import (
	"testing"

	"github.com/plus3/framecore/config"
	"github.com/plus3/framecore/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewHonoursLevel(t *testing.T) {
	logger, err := logging.New(config.Log{Level: "warn", Encoding: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewFromDefaults(t *testing.T) {
	logger, err := logging.New(config.Default().Log)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := logging.New(config.Log{Level: "loud", Encoding: "json"})
	assert.Error(t, err)

	_, err = logging.New(config.Log{Level: "info", Encoding: "xml"})
	assert.Error(t, err)

	assert.Panics(t, func() { logging.Must(config.Log{Level: "loud"}) })
}
