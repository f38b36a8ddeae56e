/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for stdfkit. Provides structured logging with timestamped
files, multiple output formats and decode-specific helpers for warnings, summaries
and exports. Console output goes to stderr so machine-readable command output on
stdout stays clean.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/stdf"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
	LogFormatDecode LogFormat = "decode"
)

const logFilePrefix = "stdfkit_"

// LoggerConfig holds the configuration for the logger.
// An empty OutputDir logs to the console only.
type LoggerConfig struct {
	Level     LogLevel  `json:"level" mapstructure:"level"`
	Format    LogFormat `json:"format" mapstructure:"format"`
	OutputDir string    `json:"output_dir" mapstructure:"dir"`
	MaxFiles  int       `json:"max_files" mapstructure:"max_files"`
	MaxSize   int64     `json:"max_size" mapstructure:"max_size"` // in bytes
	Timestamp bool      `json:"timestamp" mapstructure:"timestamp"`
	Caller    bool      `json:"caller" mapstructure:"caller"`
	Colors    bool      `json:"colors" mapstructure:"colors"`
	Compress  bool      `json:"compress" mapstructure:"compress"`

	// Console defaults to os.Stderr.
	Console io.Writer `json:"-" mapstructure:"-"`
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatDecode,
		MaxFiles:  10,
		MaxSize:   100 * 1024 * 1024, // 100MB
		Timestamp: true,
		Colors:    true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" {
		if c.MaxFiles <= 0 {
			return errors.New("max_files must be positive")
		}
		if c.MaxSize <= 0 {
			return errors.New("max_size must be positive")
		}
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom, LogFormatDecode:
	default:
		return errors.Newf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
	default:
		return errors.Newf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger wraps a logrus logger with file output and decode helpers
type Logger struct {
	config     *LoggerConfig
	logger     *logrus.Logger
	fileHandle *os.File
	filePath   string
	manager    *LogManager
	startTime  time.Time
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid logger config")
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}
	if config.OutputDir != "" {
		l.manager = NewLogManager(config.OutputDir, config.MaxFiles, config.MaxSize, config.Compress)
	}

	if err := l.setup(); err != nil {
		return nil, errors.Wrap(err, "failed to setup logger")
	}
	return l, nil
}

// setup configures the logger with the given configuration
func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}
	return l.setupOutput()
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: callerPrettyfier,
		})
	case LogFormatCustom:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})
	case LogFormatDecode:
		l.logger.SetFormatter(&DecodeFormatter{
			CustomFormatter: CustomFormatter{
				Timestamp: l.config.Timestamp,
				Caller:    l.config.Caller,
				Colors:    l.config.Colors,
			},
		})
	default:
		return errors.Newf("unsupported log format: %s", l.config.Format)
	}
	return nil
}

// setupOutput sends entries to the console and, when configured, a log file
func (l *Logger) setupOutput() error {
	console := l.config.Console
	if console == nil {
		console = os.Stderr
	}
	if l.config.OutputDir == "" {
		l.logger.SetOutput(console)
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	l.filePath = filepath.Join(l.config.OutputDir, fmt.Sprintf("%s%s.log", logFilePrefix, timestamp))

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	l.fileHandle = file
	l.logger.SetOutput(io.MultiWriter(console, file))

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   l.filePath,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Debug("Logging initialized")
	return nil
}

// FilePath returns the active log file, or "" when logging to the console only.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Decode-specific logging methods

// LogDecodeStart logs the start of a decode
func (l *Logger) LogDecodeStart(path string, size int64, workers int) {
	l.logger.WithFields(logrus.Fields{
		"file":    path,
		"bytes":   size,
		"workers": workers,
	}).Info("Decode started")
}

// LogWarning logs one non-fatal decode warning
func (l *Logger) LogWarning(w stdf.Warning) {
	l.logger.WithFields(logrus.Fields{
		"kind":   w.Kind.String(),
		"offset": w.Offset,
		"record": stdf.RecordName(stdf.RecordKey{Type: w.Type, Sub: w.Sub}),
	}).Warn("Record warning: " + w.Message)
}

// LogSummary logs the lot summary of a finished decode
func (l *Logger) LogSummary(path string, res *stdf.Result, duration time.Duration) {
	l.logger.WithFields(logrus.Fields{
		"file":     path,
		"lot":      res.LotInfo.LotID,
		"parts":    res.Summary.TotalParts,
		"passed":   res.Summary.PassedParts,
		"failed":   res.Summary.FailedParts,
		"yield":    res.Summary.YieldPercent,
		"tests":    len(res.TestResults),
		"warnings": len(res.Warnings),
		"duration": duration,
	}).Info("Decode summary")
}

// LogExport logs files written by an exporter
func (l *Logger) LogExport(format string, paths []string) {
	l.logger.WithFields(logrus.Fields{
		"format": format,
		"files":  len(paths),
		"paths":  paths,
	}).Info("Export written")
}

// Close closes the log file, rotates it if oversized and prunes old files
func (l *Logger) Close() error {
	if l.fileHandle != nil {
		l.logger.SetOutput(io.Discard)
		if err := l.fileHandle.Close(); err != nil {
			return errors.Wrap(err, "failed to close log file")
		}
		l.fileHandle = nil
	}
	if l.manager == nil {
		return nil
	}
	if err := l.manager.RotateLogs(); err != nil {
		return err
	}
	if err := l.manager.CleanupOldLogs(); err != nil {
		return errors.Wrap(err, "failed to cleanup log files")
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}
