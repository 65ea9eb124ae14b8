package cli

import (
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GabrielNunesIT/data-logger/internal/config"
)

// ParseLevel maps a config or flag level name to a zap level. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetupLogging creates the process logger writing to stderr and, when a path is
// configured, to a rotating file. The returned level can be changed at runtime.
// Returns the configured logger for dependency injection and a sync func to
// call before exit.
func SetupLogging(level string, file config.LogFileConfig) (*zap.SugaredLogger, zap.AtomicLevel, func()) {
	atom := zap.NewAtomicLevelAt(ParseLevel(level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEnc := encCfg
	consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), atom),
	}

	var rotating *lumberjack.Logger
	if file.Path != "" {
		rotating = &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotating), atom))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(log)

	return log.Sugar(), atom, func() {
		_ = log.Sync()
		if rotating != nil {
			_ = rotating.Close()
		}
	}
}
