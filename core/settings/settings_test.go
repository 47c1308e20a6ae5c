package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDefaultsOnInvalidNumbers(t *testing.T) {
	inputs := []string{"", "abc", "5.5", "1e3", "  ", "0x10", "five"}

	for _, in := range inputs {
		s := Resolve(Raw{OggQuality: in, WebmQuality: in, Threads: in})
		assert.Equal(t, DefaultOggQuality, s.OggQuality, "ogg quality for %q", in)
		assert.Equal(t, DefaultWebmCRF, s.WebmCRF, "webm crf for %q", in)
		assert.Equal(t, DefaultThreads, s.Threads, "threads for %q", in)
	}
}

func TestParseOggQualityClamps(t *testing.T) {
	cases := map[string]int{
		"-5":  1,
		"0":   1,
		"1":   1,
		"7":   7,
		"10":  10,
		"11":  10,
		"500": 10,
		" 3 ": 3,
		"+4":  4,

		"99999999999999999999":  10,
		"-99999999999999999999": 1,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseOggQuality(in), "input %q", in)
	}
}

func TestOutOfRangeIntegersSaturate(t *testing.T) {
	huge, tiny := "99999999999999999999", "-99999999999999999999"

	assert.Equal(t, 0, ParseWebmCRF(tiny))
	assert.Equal(t, 1, ParseThreads(tiny))
	assert.Greater(t, ParseWebmCRF(huge), 63)
	assert.Greater(t, ParseThreads(huge), 1)
}

func TestParseWebmCRFAndThreadsClamp(t *testing.T) {
	assert.Equal(t, 0, ParseWebmCRF("-1"))
	assert.Equal(t, 0, ParseWebmCRF("0"))
	assert.Equal(t, 63, ParseWebmCRF("63"))
	assert.Equal(t, 1000, ParseWebmCRF("1000"))

	assert.Equal(t, 1, ParseThreads("0"))
	assert.Equal(t, 1, ParseThreads("-8"))
	assert.Equal(t, 16, ParseThreads("16"))
}

func TestResolutionScaleFilter(t *testing.T) {
	assert.Equal(t, "scale=-2:480", Res480p.ScaleFilter())
	assert.Equal(t, "scale=-2:720", Res720p.ScaleFilter())
	assert.Equal(t, "scale=-2:1080", Res1080p.ScaleFilter())
	assert.Equal(t, "", ResOriginal.ScaleFilter())

	_, ok := ResOriginal.Height()
	assert.False(t, ok)
}

func TestAudioBitrateOverride(t *testing.T) {
	assert.Equal(t, "", BitrateOriginal.Override())
	assert.Equal(t, "128k", Bitrate128k.Override())
}

func TestParseLabels(t *testing.T) {
	assert.Equal(t, Res1080p, ParseResolution("1080P"))
	assert.Equal(t, ResOriginal, ParseResolution(" original "))
	assert.Equal(t, DefaultResolution, ParseResolution("4k"))

	assert.Equal(t, Bitrate192k, ParseAudioBitrate("192K"))
	assert.Equal(t, BitrateOriginal, ParseAudioBitrate("Original"))
	assert.Equal(t, DefaultAudioBitrate, ParseAudioBitrate("320k"))
}

func TestRawRoundTrip(t *testing.T) {
	s := Settings{
		Resolution:   Res720p,
		AudioBitrate: BitrateOriginal,
		OggQuality:   8,
		WebmCRF:      12,
		Threads:      6,
	}
	assert.Equal(t, s, Resolve(s.Raw()))
	assert.Equal(t, Default(), Resolve(Default().Raw()))
}

func TestNormalize(t *testing.T) {
	s := Settings{Resolution: "bogus", AudioBitrate: "", OggQuality: 42, WebmCRF: -3, Threads: 0}.Normalize()

	assert.Equal(t, DefaultResolution, s.Resolution)
	assert.Equal(t, DefaultAudioBitrate, s.AudioBitrate)
	assert.Equal(t, MaxOggQuality, s.OggQuality)
	assert.Equal(t, 0, s.WebmCRF)
	assert.Equal(t, 1, s.Threads)
}
