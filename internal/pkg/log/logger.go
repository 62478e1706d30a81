package log

import (
	"go.uber.org/zap"
)

// zapLogger is default implementation of the Logger interface.
// It is wrapped zap.SugaredLogger.
type zapLogger struct {
	*zap.SugaredLogger
}

func loggerFromZap(l *zap.Logger) *zapLogger {
	return &zapLogger{SugaredLogger: l.Sugar()}
}

func (l *zapLogger) With(keysAndValues ...any) Logger {
	return &zapLogger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// NewNopLogger returns a logger that discards all messages.
func NewNopLogger() Logger {
	return loggerFromZap(zap.NewNop())
}
