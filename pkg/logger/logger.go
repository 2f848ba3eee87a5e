package logger

import (
	"go.uber.org/zap"
)

type ILogger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warning(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) ILogger
	Sync() error
}

type logger struct {
	zap *zap.Logger
}

func (l logger) Debug(msg string, fields ...Field) {
	l.zap.Debug(msg, fields...)
}

func (l logger) Info(msg string, fields ...Field) {
	l.zap.Info(msg, fields...)
}

func (l logger) Warning(msg string, fields ...Field) {
	l.zap.Warn(msg, fields...)
}

func (l logger) Error(msg string, fields ...Field) {
	l.zap.Error(msg, fields...)
}

func (l logger) With(fields ...Field) ILogger {
	return logger{zap: l.zap.With(fields...)}
}

func (l logger) Sync() error {
	return l.zap.Sync()
}

// New builds a zap-backed logger. Development mode prints human readable
// console output, otherwise JSON.
func New(namespace string, development bool) ILogger {
	return logger{
		zap: newZapLogger(namespace, development),
	}
}

// NewNop returns a logger that discards everything.
func NewNop() ILogger {
	return logger{zap: zap.NewNop()}
}

func newZapLogger(namespace string, development bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]interface{}{
		"namespace": namespace,
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
