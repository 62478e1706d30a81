package log

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCliLogger creates the logger for the command line.
//   - debug (verbose), info -> stdout
//   - warn, error -> stderr
//   - all levels -> log file, if any
func NewCliLogger(stdout io.Writer, stderr io.Writer, logFile *File, verbose bool) Logger {
	var cores []zapcore.Core

	// Log to file
	if logFile != nil {
		cores = append(cores, fileCore(logFile))
	}

	// Log to stdout
	cores = append(cores, stdoutCore(stdout, verbose))

	// Log to stderr
	cores = append(cores, stderrCore(stderr, verbose))

	// Create zapLogger
	return loggerFromZap(zap.New(zapcore.NewTee(cores...)))
}

func stdoutCore(stdout io.Writer, verbose bool) zapcore.Core {
	levels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		// Log debug, info -> if verbose output enabled
		if verbose {
			return l == DebugLevel || l == InfoLevel
		}

		// Log info only
		return l == InfoLevel
	})
	return zapcore.NewCore(consoleEncoder(verbose), zapcore.AddSync(stdout), levels)
}

func stderrCore(stderr io.Writer, verbose bool) zapcore.Core {
	return zapcore.NewCore(consoleEncoder(verbose), zapcore.AddSync(stderr), WarnLevel)
}

func consoleEncoder(verbose bool) zapcore.Encoder {
	// Prefix messages with level only when verbose enabled
	levelKey := ""
	if verbose {
		levelKey = "level"
	}

	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         levelKey,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: "\t",
	})
}
