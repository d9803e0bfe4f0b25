package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Dev(t *testing.T) {
	cfg := Config("inquiry-api", "dev", "debug")

	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.Equal(t, "inquiry-api", cfg.InitialFields["service"])
}

func TestConfig_Prod(t *testing.T) {
	cfg := Config("inquiry-api", "prod", "warn")

	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestConfig_BadLevelKeepsDefault(t *testing.T) {
	cfg := Config("svc", "prod", "loud")
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}

func TestNamedInitializesLazily(t *testing.T) {
	l := Named("wizard")
	assert.NotNil(t, l)
	assert.NotNil(t, S())
	Sync()
}
