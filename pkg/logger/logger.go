package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *logrus.Logger

// Config controls log level, format and output destinations.
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"` // console | file | both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // megabytes
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

// Init configures the process-wide logger. File output rotates via lumberjack.
func Init(config Config) error {
	log = logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if config.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:   "2006-01-02 15:04:05",
			DisableHTMLEscape: true,
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	var writers []io.Writer

	if config.Output == "console" || config.Output == "both" {
		writers = append(writers, os.Stdout)
	}

	if config.Output == "file" || config.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}

	if len(writers) > 0 {
		log.SetOutput(io.MultiWriter(writers...))
	}

	return nil
}

// GetLogger returns the shared logger, creating a bare one if Init was never
// called (tests rely on this).
func GetLogger() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

func Debug(args ...interface{}) { GetLogger().Debug(args...) }

func Debugf(format string, args ...interface{}) { GetLogger().Debugf(format, args...) }

func Info(args ...interface{}) { GetLogger().Info(args...) }

func Infof(format string, args ...interface{}) { GetLogger().Infof(format, args...) }

func Warn(args ...interface{}) { GetLogger().Warn(args...) }

func Warnf(format string, args ...interface{}) { GetLogger().Warnf(format, args...) }

func Error(args ...interface{}) { GetLogger().Error(args...) }

func Errorf(format string, args ...interface{}) { GetLogger().Errorf(format, args...) }

func Fatalf(format string, args ...interface{}) { GetLogger().Fatalf(format, args...) }

// WithField attaches a single structured field.
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields attaches multiple structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}
