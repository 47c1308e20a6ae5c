package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"duoconv/core/settings"
)

// Config is the application configuration.
type Config struct {
	// External tools
	Tools ToolsConfig `mapstructure:"tools"`

	// Conversion behaviour and the initial quality form
	Conversion ConversionConfig `mapstructure:"conversion"`

	// Preset store location
	Presets PresetsConfig `mapstructure:"presets"`

	// Run history journal
	History HistoryConfig `mapstructure:"history"`

	// End-of-batch summary
	Report ReportConfig `mapstructure:"report"`

	Logging LoggingConfig `mapstructure:"logging"`

	UI UIConfig `mapstructure:"ui"`
}

// ToolsConfig external tool paths.
type ToolsConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`

	// ProbeTTL is how long an availability probe result is reused, in seconds.
	ProbeTTL int `mapstructure:"probe_ttl"`
}

// ConversionConfig conversion settings.
type ConversionConfig struct {
	// OutputSubdir is created next to each source file.
	OutputSubdir string `mapstructure:"output_subdir"`

	// FolderExtensions filters the one-level folder scan (case-insensitive).
	FolderExtensions []string `mapstructure:"folder_extensions"`

	// Defaults is the initial state of the quality form, in display-text form.
	Defaults settings.Raw `mapstructure:"defaults"`
}

// PresetsConfig preset store settings.
type PresetsConfig struct {
	File string `mapstructure:"file"`
}

// HistoryConfig run history settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// ReportConfig summary settings.
type ReportConfig struct {
	// MaxErrorLines bounds the detailed error lines shown in the summary.
	MaxErrorLines int `mapstructure:"max_error_lines"`
}

// LoggingConfig logging settings.
type LoggingConfig struct {
	// Level overrides the console level (debug, info, warn, error).
	Level string `mapstructure:"level"`

	EnableFile bool `mapstructure:"enable_file"`

	LogDir string `mapstructure:"log_dir"`
}

// UIConfig terminal output settings.
type UIConfig struct {
	// Silent disables the progress bar.
	Silent bool `mapstructure:"silent"`
}

// NewConfig loads the configuration from configFile, or from .duoconv.yaml in
// the home or working directory when configFile is empty. A missing file is
// not an error. Environment variables prefixed with DUOCONV_ override keys.
func NewConfig(configFile string, logger *zap.Logger) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".duoconv")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DUOCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		if logger != nil {
			logger.Debug("no config file found, using defaults")
		}
	} else if logger != nil {
		logger.Debug("config loaded", zap.String("file", v.ConfigFileUsed()))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	validateConfig(&config)

	return &config, nil
}

// Default returns the configuration with every key at its default value.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		// defaults are static; a decode failure here is a programming error
		panic(err)
	}
	validateConfig(&config)
	return &config
}

// validateConfig replaces invalid values with defaults instead of failing.
func validateConfig(config *Config) {
	if strings.TrimSpace(config.Tools.FFmpegPath) == "" {
		config.Tools.FFmpegPath = defaultFFmpegPath
	}
	if config.Tools.ProbeTTL <= 0 {
		config.Tools.ProbeTTL = defaultProbeTTL
	}

	subdir := strings.TrimSpace(config.Conversion.OutputSubdir)
	if subdir == "" || subdir != filepath.Base(subdir) || subdir == "." || subdir == ".." {
		config.Conversion.OutputSubdir = defaultOutputSubdir
	}

	exts := make([]string, 0, len(config.Conversion.FolderExtensions))
	for _, ext := range config.Conversion.FolderExtensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultFolderExtensions...)
	}
	config.Conversion.FolderExtensions = exts

	// normalize the form defaults through the resolver so they are always valid
	config.Conversion.Defaults = settings.Resolve(config.Conversion.Defaults).Raw()

	if strings.TrimSpace(config.Presets.File) == "" {
		config.Presets.File = defaultPresetFile
	}
	if strings.TrimSpace(config.History.DBPath) == "" {
		config.History.DBPath = defaultHistoryPath()
	}
	if config.Report.MaxErrorLines < 0 {
		config.Report.MaxErrorLines = defaultMaxErrorLines
	}

	switch strings.ToLower(config.Logging.Level) {
	case "", "debug", "info", "warn", "error":
		config.Logging.Level = strings.ToLower(config.Logging.Level)
	default:
		config.Logging.Level = ""
	}
	if strings.TrimSpace(config.Logging.LogDir) == "" {
		config.Logging.LogDir = defaultLogDir
	}
}
