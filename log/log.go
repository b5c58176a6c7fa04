// Package log writes diagnostics to a daily log file through logrus.
// Nothing is written unless logs.write is set.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sampletvinput/tvplay/filesystem"
	"github.com/sampletvinput/tvplay/key"
	"github.com/sampletvinput/tvplay/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type (
	Fields = logrus.Fields
	Level  = logrus.Level
)

const (
	LevelError = logrus.ErrorLevel
	LevelWarn  = logrus.WarnLevel
	LevelInfo  = logrus.InfoLevel
	LevelDebug = logrus.DebugLevel
	LevelTrace = logrus.TraceLevel
)

var (
	logger  = logrus.New()
	enabled bool
)

// Setup opens today's log file and applies the configured format and level.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
	f, err := filesystem.API().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		enabled = false
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return nil
}

// Enabled reports whether entries reach the log file.
func Enabled() bool {
	return enabled
}

// WithFields emits a structured entry at level.
func WithFields(level Level, fields Fields, msg string) {
	if enabled {
		logger.WithFields(fields).Log(level, msg)
	}
}

func emit(level Level, args ...any) {
	if enabled {
		logger.Log(level, args...)
	}
}

func emitf(level Level, format string, args ...any) {
	if enabled {
		logger.Logf(level, format, args...)
	}
}

func Error(args ...any)                 { emit(LevelError, args...) }
func Errorf(format string, args ...any) { emitf(LevelError, format, args...) }
func Warn(args ...any)                  { emit(LevelWarn, args...) }
func Warnf(format string, args ...any)  { emitf(LevelWarn, format, args...) }
func Info(args ...any)                  { emit(LevelInfo, args...) }
func Infof(format string, args ...any)  { emitf(LevelInfo, format, args...) }
func Debug(args ...any)                 { emit(LevelDebug, args...) }
func Debugf(format string, args ...any) { emitf(LevelDebug, format, args...) }
func Tracef(format string, args ...any) { emitf(LevelTrace, format, args...) }
