package log

import (
	"bytes"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type debugLogger struct {
	*zapLogger
	all          *syncBuffer
	debug        *syncBuffer
	info         *syncBuffer
	warn         *syncBuffer
	warnOrError  *syncBuffer
	errorBuffer  *syncBuffer
	buffersMutex *sync.Mutex
}

type syncBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) Sync() error {
	return nil
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.String()
}

func (b *syncBuffer) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.buffer.Reset()
}

// NewDebugLogger creates a logger which stores all messages in memory, for tests.
func NewDebugLogger() DebugLogger {
	l := &debugLogger{
		all:          &syncBuffer{},
		debug:        &syncBuffer{},
		info:         &syncBuffer{},
		warn:         &syncBuffer{},
		warnOrError:  &syncBuffer{},
		errorBuffer:  &syncBuffer{},
		buffersMutex: &sync.Mutex{},
	}

	encoderConfig := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: "  ",
	}

	core := zapcore.NewTee(
		debugCore(encoderConfig, l.all, func(zapcore.Level) bool { return true }),
		debugCore(encoderConfig, l.debug, func(lvl zapcore.Level) bool { return lvl == DebugLevel }),
		debugCore(encoderConfig, l.info, func(lvl zapcore.Level) bool { return lvl == InfoLevel }),
		debugCore(encoderConfig, l.warn, func(lvl zapcore.Level) bool { return lvl == WarnLevel }),
		debugCore(encoderConfig, l.warnOrError, func(lvl zapcore.Level) bool { return lvl == WarnLevel || lvl == ErrorLevel }),
		debugCore(encoderConfig, l.errorBuffer, func(lvl zapcore.Level) bool { return lvl == ErrorLevel }),
	)

	l.zapLogger = loggerFromZap(zap.New(core))
	return l
}

func debugCore(config zapcore.EncoderConfig, buffer *syncBuffer, levels zap.LevelEnablerFunc) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(config), buffer, levels)
}

func (l *debugLogger) Truncate() {
	l.buffersMutex.Lock()
	defer l.buffersMutex.Unlock()
	l.all.Reset()
	l.debug.Reset()
	l.info.Reset()
	l.warn.Reset()
	l.warnOrError.Reset()
	l.errorBuffer.Reset()
}

func (l *debugLogger) AllMessages() string {
	return l.readAndTruncate(l.all)
}

func (l *debugLogger) DebugMessages() string {
	return l.readAndTruncate(l.debug)
}

func (l *debugLogger) InfoMessages() string {
	return l.readAndTruncate(l.info)
}

func (l *debugLogger) WarnMessages() string {
	return l.readAndTruncate(l.warn)
}

func (l *debugLogger) WarnAndErrorMessages() string {
	return l.readAndTruncate(l.warnOrError)
}

func (l *debugLogger) ErrorMessages() string {
	return l.readAndTruncate(l.errorBuffer)
}

func (l *debugLogger) readAndTruncate(buffer *syncBuffer) string {
	str := buffer.String()
	l.Truncate()
	return str
}
