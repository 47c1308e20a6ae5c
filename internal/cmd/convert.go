package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duoconv/core/converter"
	"duoconv/core/session"
	"duoconv/internal/ui"
)

var (
	convertSettings settingsFlags
	convertPreset   string
	oggOnly         []string
	webmOnly        []string
	skipPaths       []string
	noOGG           bool
	noWebM          bool
	silent          bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [files or folders...]",
	Short: "Convert files to OGG and WebM",
	Long: `Convert video files to OGG (Theora/Vorbis) and WebM (VP9/Opus).

Folders are scanned one level deep for files with the configured extensions.
Every file is converted to both formats unless narrowed with --ogg-only,
--webm-only, --skip, --no-ogg or --no-webm.`,
	Example: `  duoconv convert clip.mp4
  duoconv convert ~/videos --resolution 720p --webm-crf 28
  duoconv convert a.mp4 b.mp4 --ogg-only b.mp4 --preset web`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertSettings.register(convertCmd)

	fs := convertCmd.Flags()
	fs.StringVarP(&convertPreset, "preset", "p", "", "start from a saved preset")
	fs.StringArrayVar(&oggOnly, "ogg-only", nil, "convert this file to OGG only (repeatable)")
	fs.StringArrayVar(&webmOnly, "webm-only", nil, "convert this file to WebM only (repeatable)")
	fs.StringArrayVar(&skipPaths, "skip", nil, "keep this file in the batch but convert it to nothing (repeatable)")
	fs.BoolVar(&noOGG, "no-ogg", false, "disable OGG for every file")
	fs.BoolVar(&noWebM, "no-webm", false, "disable WebM for every file")
	fs.BoolVarP(&silent, "silent", "s", false, "no progress output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	tools := converter.NewToolManager(cfg, log.Named("tools"))
	if _, err := tools.Require(ctx, cfg.Tools.FFmpegPath); err != nil {
		return fmt.Errorf("%w (install ffmpeg or set tools.ffmpeg_path)", err)
	}

	sess, closeSession := openSession()
	defer closeSession()

	if err := addPaths(sess, args); err != nil {
		return err
	}
	if err := applySelection(sess); err != nil {
		return err
	}

	value := sess.Settings()
	if convertPreset != "" {
		loaded, err := sess.LoadPreset(convertPreset)
		if err != nil {
			return fmt.Errorf("preset %q: %w", convertPreset, err)
		}
		value = loaded
	}
	value = convertSettings.apply(cmd, value)

	sink := ui.NewProgressSink(cfg.UI.Silent || silent, os.Stderr)
	report, err := sess.RunBatch(ctx, value, sink)
	if err != nil {
		return err
	}

	ui.WriteSummary(os.Stdout, report, cfg.Report.MaxErrorLines)

	stats := sess.PoolStats()
	log.Debug("pool finished",
		zap.Int("size", stats.PoolSize),
		zap.Int64("completed", stats.Completed),
		zap.Int32("peak_in_flight", stats.PeakInFlight),
		zap.Int64("recovered", stats.Recovered))

	if n := report.ErrorCount(); n > 0 {
		return fmt.Errorf("%d file(s) failed", n)
	}
	if report.Interrupted() {
		return errors.New("interrupted")
	}
	return nil
}

func addPaths(sess *session.Session, paths []string) error {
	for _, p := range paths {
		fi, err := os.Stat(p)
		switch {
		case err != nil:
			return err
		case fi.IsDir():
			n, err := sess.AddFolder(p)
			if err != nil {
				return err
			}
			if n == 0 {
				ui.Warn("No matching files in %s", p)
			}
		default:
			sess.AddFiles(p)
		}
	}
	return nil
}

func applySelection(sess *session.Session) error {
	var off []converter.Format
	if noOGG {
		off = append(off, converter.FormatOGG)
	}
	if noWebM {
		off = append(off, converter.FormatWebM)
	}
	for _, task := range sess.Tasks() {
		for _, f := range off {
			if err := sess.SetFormatFlag(task.Path, f, false); err != nil {
				return fmt.Errorf("%s: %w", task.Path, err)
			}
		}
	}

	narrow := []struct {
		paths []string
		off   []converter.Format
	}{
		{oggOnly, []converter.Format{converter.FormatWebM}},
		{webmOnly, []converter.Format{converter.FormatOGG}},
		{skipPaths, converter.Formats},
	}
	for _, n := range narrow {
		for _, p := range n.paths {
			for _, f := range n.off {
				if err := sess.SetFormatFlag(p, f, false); err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
			}
		}
	}
	return nil
}
