// Package settings turns the free-text quality form into typed, clamped
// conversion settings. Parsing never fails: malformed input falls back to the
// field default.
package settings

import (
	"errors"
	"strconv"
	"strings"
)

// Resolution is an output height label.
type Resolution string

const (
	Res480p     Resolution = "480p"
	Res720p     Resolution = "720p"
	Res1080p    Resolution = "1080p"
	ResOriginal Resolution = "Original"
)

// Resolutions lists the labels in the order the form presents them.
var Resolutions = []Resolution{Res480p, Res720p, Res1080p, ResOriginal}

// Height returns the target frame height. ok is false for ResOriginal.
func (r Resolution) Height() (height int, ok bool) {
	switch r {
	case Res480p:
		return 480, true
	case Res720p:
		return 720, true
	case Res1080p:
		return 1080, true
	default:
		return 0, false
	}
}

// ScaleFilter returns the ffmpeg scale expression for r, or "" when the source
// resolution is kept. Width is derived from height so the aspect ratio survives.
func (r Resolution) ScaleFilter() string {
	height, ok := r.Height()
	if !ok {
		return ""
	}
	return "scale=-2:" + strconv.Itoa(height)
}

// AudioBitrate is an audio bitrate label.
type AudioBitrate string

const (
	Bitrate64k      AudioBitrate = "64k"
	Bitrate128k     AudioBitrate = "128k"
	Bitrate192k     AudioBitrate = "192k"
	BitrateOriginal AudioBitrate = "Original"
)

// AudioBitrates lists the labels in the order the form presents them.
var AudioBitrates = []AudioBitrate{Bitrate64k, Bitrate128k, Bitrate192k, BitrateOriginal}

// Override returns the bitrate passed to the encoder, or "" to keep the
// source bitrate.
func (b AudioBitrate) Override() string {
	if b == BitrateOriginal {
		return ""
	}
	return string(b)
}

// Field defaults and bounds.
const (
	DefaultResolution   = Res480p
	DefaultAudioBitrate = Bitrate64k

	DefaultOggQuality = 5
	MinOggQuality     = 1
	MaxOggQuality     = 10

	DefaultWebmCRF = 30
	MinWebmCRF     = 0

	DefaultThreads = 4
	MinThreads     = 1
)

// Settings is the validated quality bundle shared by every pipeline of a batch.
type Settings struct {
	Resolution   Resolution
	AudioBitrate AudioBitrate
	OggQuality   int
	WebmCRF      int
	Threads      int
}

// Raw is the display-text form of Settings, as typed into the form and as
// stored in the preset file.
type Raw struct {
	Resolution   string `json:"resolution" mapstructure:"resolution"`
	AudioBitrate string `json:"audio_bitrate" mapstructure:"audio_bitrate"`
	OggQuality   string `json:"ogg_quality" mapstructure:"ogg_quality"`
	WebmQuality  string `json:"webm_quality" mapstructure:"webm_quality"`
	Threads      string `json:"threads" mapstructure:"threads"`
}

// Default returns the initial state of the quality form.
func Default() Settings {
	return Settings{
		Resolution:   DefaultResolution,
		AudioBitrate: DefaultAudioBitrate,
		OggQuality:   DefaultOggQuality,
		WebmCRF:      DefaultWebmCRF,
		Threads:      DefaultThreads,
	}
}

// Resolve validates every field of raw independently.
func Resolve(raw Raw) Settings {
	return Settings{
		Resolution:   ParseResolution(raw.Resolution),
		AudioBitrate: ParseAudioBitrate(raw.AudioBitrate),
		OggQuality:   ParseOggQuality(raw.OggQuality),
		WebmCRF:      ParseWebmCRF(raw.WebmQuality),
		Threads:      ParseThreads(raw.Threads),
	}
}

// Raw renders s in the canonical text form. Resolve(s.Raw()) == s for any
// normalized s.
func (s Settings) Raw() Raw {
	return Raw{
		Resolution:   string(s.Resolution),
		AudioBitrate: string(s.AudioBitrate),
		OggQuality:   strconv.Itoa(s.OggQuality),
		WebmQuality:  strconv.Itoa(s.WebmCRF),
		Threads:      strconv.Itoa(s.Threads),
	}
}

// Normalize clamps a Settings value built in code the same way Resolve clamps
// parsed input. Unknown labels are replaced by their defaults.
func (s Settings) Normalize() Settings {
	return Settings{
		Resolution:   ParseResolution(string(s.Resolution)),
		AudioBitrate: ParseAudioBitrate(string(s.AudioBitrate)),
		OggQuality:   clamp(s.OggQuality, MinOggQuality, MaxOggQuality),
		WebmCRF:      atLeast(s.WebmCRF, MinWebmCRF),
		Threads:      atLeast(s.Threads, MinThreads),
	}
}

// ParseResolution matches label case-insensitively against the known labels.
func ParseResolution(label string) Resolution {
	label = strings.TrimSpace(label)
	for _, r := range Resolutions {
		if strings.EqualFold(label, string(r)) {
			return r
		}
	}
	return DefaultResolution
}

// ParseAudioBitrate matches label case-insensitively against the known labels.
func ParseAudioBitrate(label string) AudioBitrate {
	label = strings.TrimSpace(label)
	for _, b := range AudioBitrates {
		if strings.EqualFold(label, string(b)) {
			return b
		}
	}
	return DefaultAudioBitrate
}

// ParseOggQuality parses text and clamps it into [MinOggQuality, MaxOggQuality].
func ParseOggQuality(text string) int {
	n, ok := parseInt(text)
	if !ok {
		return DefaultOggQuality
	}
	return clamp(n, MinOggQuality, MaxOggQuality)
}

// ParseWebmCRF parses text and clamps it to be non-negative.
func ParseWebmCRF(text string) int {
	n, ok := parseInt(text)
	if !ok {
		return DefaultWebmCRF
	}
	return atLeast(n, MinWebmCRF)
}

// ParseThreads parses text and clamps it to at least one.
func ParseThreads(text string) int {
	n, ok := parseInt(text)
	if !ok {
		return DefaultThreads
	}
	return atLeast(n, MinThreads)
}

// parseInt accepts decimal integers of any length; values beyond int range
// saturate so the caller still clamps them.
func parseInt(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return n, true
		}
		return 0, false
	}
	return n, true
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func atLeast(n, lo int) int {
	if n < lo {
		return lo
	}
	return n
}
