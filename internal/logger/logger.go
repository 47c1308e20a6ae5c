package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures NewLoggerWithConfig.
type LoggerConfig struct {
	Verbose    bool
	EnableFile bool
	// Level overrides the console level when set (debug, info, warn, error).
	Level     string
	LogDir    string
	Component string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// DefaultLoggerConfig returns the console-at-error, file-at-debug setup.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		EnableFile: true,
		LogDir:     "./output/logs",
		Component:  "duoconv",
	}
}

// NewLogger creates the application logger.
func NewLogger(verbose bool) (*zap.Logger, error) {
	config := DefaultLoggerConfig()
	config.Verbose = verbose
	return NewLoggerWithConfig(config)
}

// NewLoggerWithConfig builds a tee of a colored console core and, when
// enabled, a JSON file core that records every level.
func NewLoggerWithConfig(config *LoggerConfig) (*zap.Logger, error) {
	// the console stays quiet unless asked; the file keeps everything
	consoleLevel := zapcore.ErrorLevel
	if config.Verbose {
		consoleLevel = zapcore.DebugLevel
	}
	if lvl, ok := ParseLevel(config.Level); ok {
		consoleLevel = lvl
	}

	consoleConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	console := config.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), consoleLevel),
	}

	if config.EnableFile {
		fileConfig := zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		file, err := os.OpenFile(LogFilePath(config), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ParseLevel maps a config level name to a zap level.
func ParseLevel(name string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var coloredLevel string
	switch level {
	case zapcore.DebugLevel:
		coloredLevel = color.CyanString("[DEBUG]")
	case zapcore.InfoLevel:
		coloredLevel = color.GreenString("[INFO] ")
	case zapcore.WarnLevel:
		coloredLevel = color.YellowString("[WARN] ")
	case zapcore.ErrorLevel:
		coloredLevel = color.RedString("[ERROR]")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		coloredLevel = color.MagentaString("[PANIC]")
	case zapcore.FatalLevel:
		coloredLevel = color.RedString("[FATAL]")
	default:
		coloredLevel = level.CapitalString()
	}
	enc.AppendString(coloredLevel)
}

// LogFilePath returns <dir>/<component>_YYYYMMDD.log, creating dir. If dir
// cannot be created the working directory is used.
func LogFilePath(config *LoggerConfig) string {
	logDir := config.LogDir
	if logDir == "" {
		logDir = "./output/logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logDir = "."
	}

	component := config.Component
	if component == "" {
		component = "duoconv"
	}
	return filepath.Join(logDir, component+"_"+time.Now().Format("20060102")+".log")
}
