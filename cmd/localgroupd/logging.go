package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelKey  = "log-level"
	logFormatKey = "log-format"
	logFileKey   = "log-file"
)

func addLogFlags(flags *pflag.FlagSet) {
	flags.String(logLevelKey, "info", "Log level (debug, info, warn, error)")
	flags.String(logFormatKey, "json", "Log format (json or console)")
	flags.String(logFileKey, "", "Write logs to this file, rotated by size, instead of stderr")
}

func newLogger(flags *pflag.FlagSet) (*zap.Logger, error) {
	levelStr, err := flags.GetString(logLevelKey)
	if err != nil {
		return nil, err
	}
	format, err := flags.GetString(logFormatKey)
	if err != nil {
		return nil, err
	}
	file, err := flags.GetString(logFileKey)
	if err != nil {
		return nil, err
	}

	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console":
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	var out zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if file != "" {
		out = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	return zap.New(zapcore.NewCore(enc, out, level), zap.AddCaller()), nil
}
