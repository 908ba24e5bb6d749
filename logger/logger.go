package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var global = zap.NewNop().Sugar()

// Init builds the process logger. Console output is always enabled; when
// filePath is set a rotated JSON log file is written as well.
func Init(environment, level, filePath string) error {
	lvl := zap.InfoLevel
	if level != "" {
		if err := lvl.Set(strings.ToLower(level)); err != nil {
			return err
		}
	} else if environment != "production" {
		lvl = zap.DebugLevel
	}

	var consoleEncoder zapcore.Encoder
	if environment == "production" {
		consoleEncoder = zapcore.NewJSONEncoder(productionEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lvl),
	}

	if filePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(productionEncoderConfig()),
			zapcore.AddSync(rotator),
			lvl,
		))
	}

	global = zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	return nil
}

func productionEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	return cfg
}

// L returns the process logger. It discards everything until Init is called.
func L() *zap.SugaredLogger {
	return global
}

// Replace swaps the process logger and returns a func restoring the previous
// one.
func Replace(l *zap.SugaredLogger) func() {
	previous := global
	global = l
	return func() { global = previous }
}

// Sync flushes buffered entries.
func Sync() {
	_ = global.Sync()
}
