package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"duoconv/config"
	"duoconv/core/batch"
	"duoconv/core/converter"
	"duoconv/core/session"
	"duoconv/core/settings"
)

func TestSettingsFlagsApplyOnlyChanged(t *testing.T) {
	var f settingsFlags
	c := &cobra.Command{Use: "x"}
	f.register(c)
	require.NoError(t, c.Flags().Parse([]string{"--resolution", "720p", "--ogg-quality", "42"}))

	got := f.apply(c, settings.Default())

	assert.Equal(t, settings.Res720p, got.Resolution)
	assert.Equal(t, settings.MaxOggQuality, got.OggQuality)
	assert.Equal(t, settings.DefaultAudioBitrate, got.AudioBitrate)
	assert.Equal(t, settings.DefaultWebmCRF, got.WebmCRF)
	assert.Equal(t, settings.DefaultThreads, got.Threads)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 GiB", formatBytes(3<<29))
}

func TestApplySelection(t *testing.T) {
	dir := t.TempDir()
	c := config.Default()
	c.Presets.File = filepath.Join(dir, "presets.json")
	sess := session.New(c, zap.NewNop(), session.Options{})
	a, b := filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")
	sess.AddFiles(a, b)

	noOGG, skipPaths = true, []string{b}
	t.Cleanup(func() { noOGG, skipPaths = false, nil })

	require.NoError(t, applySelection(sess))
	tasks := sess.Tasks()
	assert.Equal(t, converter.NewFormatSet(converter.FormatWebM), tasks[0].Requested())
	assert.True(t, tasks[1].Requested().Empty())

	skipPaths = []string{filepath.Join(dir, "missing.mp4")}
	assert.ErrorIs(t, applySelection(sess), batch.ErrUnknownPath)
}
