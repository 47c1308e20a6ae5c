package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"duoconv/core/preset"
	"duoconv/internal/ui"
)

var presetSettings settingsFlags

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved quality presets",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession := openSession()
		defer closeSession()

		store := sess.Presets()
		names := store.Names()
		if len(names) == 0 {
			ui.Info("No presets saved in %s", store.Path())
			return nil
		}

		data := pterm.TableData{{"Name", "Resolution", "Audio", "OGG quality", "WebM CRF", "Threads"}}
		for _, name := range names {
			value, err := store.Load(name)
			if err != nil {
				return err
			}
			raw := value.Raw()
			data = append(data, []string{name, raw.Resolution, raw.AudioBitrate, raw.OggQuality, raw.WebmQuality, raw.Threads})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the configured defaults, adjusted by flags, as a preset",
	Example: `  duoconv preset save web --resolution 720p --webm-crf 32
  duoconv preset save archive --resolution Original --audio-bitrate Original`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession := openSession()
		defer closeSession()

		sess.SetSettings(presetSettings.apply(cmd, sess.Settings()))
		if err := sess.SavePreset(args[0]); err != nil {
			return err
		}
		ui.Success("Preset %q saved", args[0])
		return nil
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the settings stored in a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession := openSession()
		defer closeSession()

		value, err := sess.Presets().Load(args[0])
		if err != nil {
			return fmt.Errorf("preset %q: %w", args[0], err)
		}
		raw := value.Raw()
		fmt.Printf("resolution:    %s\n", raw.Resolution)
		fmt.Printf("audio_bitrate: %s\n", raw.AudioBitrate)
		fmt.Printf("ogg_quality:   %s\n", raw.OggQuality)
		fmt.Printf("webm_quality:  %s\n", raw.WebmQuality)
		fmt.Printf("threads:       %s\n", raw.Threads)
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a preset, choosing from a list when no name is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession := openSession()
		defer closeSession()

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			_, chosen, err := ui.Select("Delete preset", sess.PresetNames())
			if errors.Is(err, ui.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}
			name = chosen
		}

		if name == preset.Placeholder {
			return nil
		}
		if _, err := sess.Presets().Load(name); errors.Is(err, preset.ErrNotFound) {
			ui.Warn("No preset named %q", name)
			return nil
		}
		if err := sess.DeletePreset(name); err != nil {
			return err
		}
		ui.Success("Preset %q deleted", name)
		return nil
	},
}

func init() {
	presetSettings.register(presetSaveCmd)
	presetCmd.AddCommand(presetListCmd, presetSaveCmd, presetShowCmd, presetDeleteCmd)
}
