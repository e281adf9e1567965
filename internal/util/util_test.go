package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "North West", NormalizeText("  North \t West \n"))
	assert.Equal(t, "", NormalizeText("   "))
	assert.Equal(t, "&lt;b&gt;", SanitizeInput(" <b> "))
}

func TestContainsSuspicious(t *testing.T) {
	cases := map[string]bool{
		"Central":                   false,
		"<img src=x onerror=alert>": true,
		"${jndi}":                   true,
		"{{.Env}}":                  true,
		"Lagos {east}":              false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ContainsSuspicious(in), in)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("development", "warn", "json")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("unknown"))
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
}
