package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"duoconv/core/settings"
)

const (
	defaultFFmpegPath    = "ffmpeg"
	defaultProbeTTL      = 300
	defaultOutputSubdir  = "converted"
	defaultPresetFile    = "presets.json"
	defaultMaxErrorLines = 3
	defaultLogDir        = "./output/logs"
)

var defaultFolderExtensions = []string{".mp4"}

// setDefaults registers every default in one place.
func setDefaults(v *viper.Viper) {
	setToolsDefaults(v)
	setConversionDefaults(v)

	v.SetDefault("presets.file", defaultPresetFile)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", defaultHistoryPath())

	v.SetDefault("report.max_error_lines", defaultMaxErrorLines)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.enable_file", true)
	v.SetDefault("logging.log_dir", defaultLogDir)

	v.SetDefault("ui.silent", false)
}

// setToolsDefaults uses a bare tool name so the PATH lookup happens at run time.
func setToolsDefaults(v *viper.Viper) {
	v.SetDefault("tools.ffmpeg_path", defaultFFmpegPath)
	v.SetDefault("tools.probe_ttl", defaultProbeTTL)
}

func setConversionDefaults(v *viper.Viper) {
	v.SetDefault("conversion.output_subdir", defaultOutputSubdir)
	v.SetDefault("conversion.folder_extensions", defaultFolderExtensions)

	raw := settings.Default().Raw()
	v.SetDefault("conversion.defaults.resolution", raw.Resolution)
	v.SetDefault("conversion.defaults.audio_bitrate", raw.AudioBitrate)
	v.SetDefault("conversion.defaults.ogg_quality", raw.OggQuality)
	v.SetDefault("conversion.defaults.webm_quality", raw.WebmQuality)
	v.SetDefault("conversion.defaults.threads", raw.Threads)
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".duoconv", "history.db")
}
