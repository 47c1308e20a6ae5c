package preset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"duoconv/core/settings"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.json")
	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	return s, path
}

func sample() settings.Settings {
	return settings.Settings{
		Resolution:   settings.Res1080p,
		AudioBitrate: settings.Bitrate192k,
		OggQuality:   8,
		WebmCRF:      24,
		Threads:      6,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, path := openTemp(t)

	require.NoError(t, s.Save("p", sample()))
	got, err := s.Load("p")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	got, err = reopened.Load("p")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestFileFormat(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Save("web", settings.Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{
    "web": {
        "resolution": "480p",
        "audio_bitrate": "64k",
        "ogg_quality": "5",
        "webm_quality": "30",
        "threads": "4"
    }
}
`, string(data))
	assert.NotContains(t, string(data), Placeholder)
}

func TestListNamesKeepsInsertionOrder(t *testing.T) {
	s, path := openTemp(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Save(name, settings.Default()))
	}
	require.NoError(t, s.Save("alpha", sample()))

	want := []string{Placeholder, "zeta", "alpha", "mid"}
	assert.Equal(t, want, s.ListNames())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, want, reopened.ListNames())
}

func TestSaveRejectsBadNames(t *testing.T) {
	s, _ := openTemp(t)

	assert.ErrorIs(t, s.Save("   ", settings.Default()), ErrEmptyName)
	assert.ErrorIs(t, s.Save(Placeholder, settings.Default()), ErrReservedName)
	assert.Equal(t, 0, s.Len())
}

func TestLoadUnknown(t *testing.T) {
	s, _ := openTemp(t)

	_, err := s.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Save("a", settings.Default()))
	require.NoError(t, s.Save("b", settings.Default()))

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete(Placeholder))
	require.NoError(t, s.Delete(""))

	assert.Equal(t, []string{"b"}, s.Names())
	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, reopened.Names())
}

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "absent.json"), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{Placeholder}, s.ListNames())
}

func TestOpenMalformed(t *testing.T) {
	for name, content := range map[string]string{
		"garbage": "{not json",
		"array":   `["a", "b"]`,
		"string":  `"hello"`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "presets.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			s, err := Open(path, nil)

			var malformed *MalformedError
			assert.True(t, errors.As(err, &malformed), "got %v", err)
			require.NotNil(t, s)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestOpenLenientValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	content := `{
		"hand": {"resolution": "720P", "audio_bitrate": "Original", "ogg_quality": 9, "webm_quality": "abc", "threads": null},
		"<Select a Preset>": {"resolution": "480p"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hand"}, s.Names())

	got, err := s.Load("hand")
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{
		Resolution:   settings.Res720p,
		AudioBitrate: settings.BitrateOriginal,
		OggQuality:   9,
		WebmCRF:      settings.DefaultWebmCRF,
		Threads:      settings.DefaultThreads,
	}, got)
}

func TestSaveRollsBackOnWriteFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.json")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("keep", settings.Default()))

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err = s.Save("new", sample())
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, []string{"keep"}, s.Names())

	err = s.Delete("keep")
	require.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, []string{"keep"}, s.Names())
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "missing", "presets.json"), nil)
	require.NoError(t, err)

	err = s.Save("p", settings.Default())

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, 0, s.Len())
}

func TestWatchReloadsExternalWrite(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Save("mine", settings.Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan []string, 4)
	require.NoError(t, s.Watch(ctx, func(names []string) { changed <- names }))

	other, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, other.Save("theirs", sample()))

	select {
	case names := <-changed:
		assert.Equal(t, []string{"mine", "theirs"}, names)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the external write")
	}

	got, err := s.Load("theirs")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}
