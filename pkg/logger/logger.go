package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Config builds the zap configuration for an environment ("dev", "uat", "prod").
// Dev logs are colored console lines; everything else is JSON with ISO8601 "ts".
// An unparseable level keeps the environment default.
func Config(service, env, level string) zap.Config {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.InitialFields = map[string]any{"service": service}
	return cfg
}

// Init builds the global logger. It panics when zap cannot be configured.
func Init(service, env, level string) {
	l, err := Config(service, env, level).Build(zap.AddCaller())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	set(l)
	l.Sugar().Infow("logger initialized", "env", env, "level", level)
}

func set(l *zap.Logger) {
	mu.Lock()
	log, sugar = l, l.Sugar()
	mu.Unlock()
}

func current() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		Init("unknown", "dev", "info")
		mu.RLock()
		l = log
		mu.RUnlock()
	}
	return l
}

// L returns the base structured logger handed to components.
func L() *zap.Logger { return current() }

// S returns the sugared logger used by main and startup wiring.
func S() *zap.SugaredLogger {
	current()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Named returns a child of the global logger scoped to a component.
func Named(component string) *zap.Logger {
	return current().Named(component)
}

// Sync flushes buffered entries. Defer it in main.
func Sync() {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}
