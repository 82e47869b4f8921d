package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerFallsBackToNop(t *testing.T) {
	saved := CLILogger
	CLILogger = nil
	t.Cleanup(func() { CLILogger = saved })

	logger := Logger()
	require.NotNil(t, logger)
	logger.Debug("ignored", zap.String("k", "v"))
}

func TestInitCLILogger(t *testing.T) {
	InitCLILogger("brainboard-test", true)
	require.NotNil(t, CLILogger)
	assert.Same(t, CLILogger, Logger())
	CLILogger.Debug("debug enabled", zap.Bool("verbose", true))
}

func TestInitServerLogger(t *testing.T) {
	InitServerLogger("brainboard-test", "debug", "test")
	require.NotNil(t, ServerLogger)
	Server().Info("structured", zap.String("route", "/v1/posts"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel(" Debug "))
	assert.Equal(t, "WARN", parseLogLevel("warning"))
	assert.Equal(t, "ERROR", parseLogLevel("error"))
	assert.Equal(t, "INFO", parseLogLevel("verbose"))
}

func TestPortOf(t *testing.T) {
	port, err := portOf("[::]:9464")
	require.NoError(t, err)
	assert.Equal(t, 9464, port)

	_, err = portOf("nope")
	require.Error(t, err)
}
