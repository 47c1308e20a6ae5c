package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duoconv/core/converter"
	"duoconv/core/preset"
	"duoconv/core/session"
	"duoconv/core/settings"
	"duoconv/internal/ui"
	"duoconv/internal/version"
)

const (
	menuAddFiles   = "Add files"
	menuAddFolder  = "Add folder"
	menuShowList   = "Show file list"
	menuFormats    = "Choose formats for a file"
	menuRemove     = "Remove a file"
	menuClear      = "Clear list"
	menuSettings   = "Edit quality settings"
	menuLoadPreset = "Load preset"
	menuSavePreset = "Save preset"
	menuDelPreset  = "Delete preset"
	menuConvert    = "Start conversion"
	menuQuit       = "Quit"
)

var menuItems = []string{
	menuAddFiles, menuAddFolder, menuShowList, menuFormats, menuRemove, menuClear,
	menuSettings, menuLoadPreset, menuSavePreset, menuDelPreset, menuConvert, menuQuit,
}

// format choices offered per file, in the order shown
var formatChoices = []struct {
	label     string
	ogg, webm bool
}{
	{"OGG + WebM", true, true},
	{"OGG only", true, false},
	{"WebM only", false, true},
	{"Neither (skip)", false, false},
}

func runInteractive(cmd *cobra.Command, args []string) error {
	if !ui.IsInteractive() {
		return errors.New("interactive mode needs a terminal; use `duoconv convert`")
	}

	sess, closeSession := openSession()
	defer closeSession()

	// one manager for the whole menu so repeated runs reuse the cached probe
	tools := converter.NewToolManager(cfg, log.Named("tools"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := sess.Presets().Watch(ctx, func(names []string) {
			log.Debug("preset file changed on disk", zap.Strings("names", names))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("preset watch stopped", zap.Error(err))
		}
	}()

	ui.Banner(version.GetVersion())

	for {
		_, choice, err := ui.Select(fmt.Sprintf("%d file(s) queued", len(sess.Tasks())), menuItems)
		if errors.Is(err, ui.ErrCancelled) || choice == menuQuit {
			return nil
		}
		if err != nil {
			return err
		}

		if err := handleMenu(sess, tools, choice); err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				continue
			}
			ui.Error("%v", err)
		}
	}
}

func handleMenu(sess *session.Session, tools *converter.ToolManager, choice string) error {
	switch choice {
	case menuAddFiles:
		text, err := ui.Ask("File paths (separate with ;)", "", ui.NotBlank)
		if err != nil {
			return err
		}
		var paths []string
		for _, p := range strings.Split(text, ";") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		ui.Info("%d file(s) added", sess.AddFiles(paths...))

	case menuAddFolder:
		dir, err := ui.Ask("Folder", "", ui.NotBlank)
		if err != nil {
			return err
		}
		n, err := sess.AddFolder(dir)
		if err != nil {
			return err
		}
		ui.Info("%d file(s) added", n)

	case menuShowList:
		showTasks(sess.Tasks())

	case menuFormats:
		task, err := pickTask(sess, "File")
		if err != nil {
			return err
		}
		labels := make([]string, len(formatChoices))
		for i, c := range formatChoices {
			labels[i] = c.label
		}
		idx, _, err := ui.Select(filepath.Base(task.Path), labels)
		if err != nil {
			return err
		}
		c := formatChoices[idx]
		if err := sess.SetFormatFlag(task.Path, converter.FormatOGG, c.ogg); err != nil {
			return err
		}
		return sess.SetFormatFlag(task.Path, converter.FormatWebM, c.webm)

	case menuRemove:
		task, err := pickTask(sess, "Remove")
		if err != nil {
			return err
		}
		sess.Remove(task.Path)

	case menuClear:
		if ui.Confirm("Remove every file from the list") {
			sess.Clear()
		}

	case menuSettings:
		return editSettings(sess)

	case menuLoadPreset:
		_, name, err := ui.Select("Load preset", sess.PresetNames())
		if err != nil || name == preset.Placeholder {
			return err
		}
		if _, err := sess.LoadPreset(name); err != nil {
			return err
		}
		ui.Success("Preset %q loaded", name)

	case menuSavePreset:
		name, err := ui.Ask("Preset name", "", ui.NotBlank)
		if err != nil {
			return err
		}
		if err := sess.SavePreset(name); err != nil {
			return err
		}
		ui.Success("Preset %q saved", name)

	case menuDelPreset:
		_, name, err := ui.Select("Delete preset", sess.PresetNames())
		if err != nil || name == preset.Placeholder {
			return err
		}
		if err := sess.DeletePreset(name); err != nil {
			return err
		}
		ui.Success("Preset %q deleted", name)

	case menuConvert:
		return convertInteractive(sess, tools)
	}
	return nil
}

func pickTask(sess *session.Session, label string) (converter.Task, error) {
	tasks := sess.Tasks()
	if len(tasks) == 0 {
		return converter.Task{}, session.ErrEmptyBatch
	}
	items := make([]string, len(tasks))
	for i, t := range tasks {
		items[i] = t.Path + " " + t.Requested().String()
	}
	idx, _, err := ui.Select(label, items)
	if err != nil {
		return converter.Task{}, err
	}
	return tasks[idx], nil
}

func showTasks(tasks []converter.Task) {
	if len(tasks) == 0 {
		ui.Info("The list is empty")
		return
	}
	for _, t := range tasks {
		fmt.Printf("  %-12s %s\n", t.Requested(), t.Path)
	}
}

func editSettings(sess *session.Session) error {
	raw := sess.Settings().Raw()

	resolutions := make([]string, len(settings.Resolutions))
	for i, r := range settings.Resolutions {
		resolutions[i] = string(r)
	}
	_, res, err := ui.Select("Resolution", resolutions)
	if err != nil {
		return err
	}
	raw.Resolution = res

	bitrates := make([]string, len(settings.AudioBitrates))
	for i, b := range settings.AudioBitrates {
		bitrates[i] = string(b)
	}
	_, bitrate, err := ui.Select("Audio bitrate", bitrates)
	if err != nil {
		return err
	}
	raw.AudioBitrate = bitrate

	fields := []struct {
		label string
		value *string
	}{
		{"OGG quality (1-10)", &raw.OggQuality},
		{"WebM CRF (lower is better)", &raw.WebmQuality},
		{"Threads", &raw.Threads},
	}
	for _, f := range fields {
		text, err := ui.Ask(f.label, *f.value, nil)
		if err != nil {
			return err
		}
		*f.value = text
	}

	applied := sess.SetRawSettings(raw).Raw()
	ui.Info("Settings: %s, audio %s, OGG q%s, WebM crf %s, %s thread(s)",
		applied.Resolution, applied.AudioBitrate, applied.OggQuality, applied.WebmQuality, applied.Threads)
	return nil
}

func convertInteractive(sess *session.Session, tools *converter.ToolManager) error {
	if _, err := tools.Require(context.Background(), cfg.Tools.FFmpegPath); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	report, err := sess.RunBatch(ctx, sess.Settings(), ui.NewProgressSink(cfg.UI.Silent, os.Stderr))
	if err != nil {
		return err
	}
	ui.WriteSummary(os.Stdout, report, cfg.Report.MaxErrorLines)
	return nil
}
