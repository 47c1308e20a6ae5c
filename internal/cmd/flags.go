package cmd

import (
	"github.com/spf13/cobra"

	"duoconv/core/settings"
)

// settingsFlags holds the quality flags as text so they go through the same
// lenient parsing as the interactive form.
type settingsFlags struct {
	resolution   string
	audioBitrate string
	oggQuality   string
	webmCRF      string
	threads      string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.resolution, "resolution", "", "output height: 480p, 720p, 1080p or Original")
	fs.StringVar(&f.audioBitrate, "audio-bitrate", "", "audio bitrate: 64k, 128k, 192k or Original")
	fs.StringVar(&f.oggQuality, "ogg-quality", "", "Theora quality 1-10")
	fs.StringVar(&f.webmCRF, "webm-crf", "", "VP9 CRF, 0 or more (lower is better)")
	fs.StringVar(&f.threads, "threads", "", "files converted at once, also passed to ffmpeg -threads")
}

// apply overlays the flags the user set onto base.
func (f *settingsFlags) apply(cmd *cobra.Command, base settings.Settings) settings.Settings {
	raw := base.Raw()
	fs := cmd.Flags()
	if fs.Changed("resolution") {
		raw.Resolution = f.resolution
	}
	if fs.Changed("audio-bitrate") {
		raw.AudioBitrate = f.audioBitrate
	}
	if fs.Changed("ogg-quality") {
		raw.OggQuality = f.oggQuality
	}
	if fs.Changed("webm-crf") {
		raw.WebmQuality = f.webmCRF
	}
	if fs.Changed("threads") {
		raw.Threads = f.threads
	}
	return settings.Resolve(raw)
}
