package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duoconv/core/converter"
	"duoconv/internal/ui"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check ffmpeg and the encoders duoconv needs",
	Long: `Check that ffmpeg is installed and built with libtheora, libvorbis,
libvpx-vp9 and libopus, and print the CPU and memory available for conversions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheckDeps(cmd.Context())
	},
}

func runCheckDeps(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tools := converter.NewToolManager(cfg, log.Named("tools"))

	info := tools.FFmpeg(ctx)
	if !info.Available {
		ui.Error("ffmpeg (%s): %v", info.Name, info.Err)
		return fmt.Errorf("ffmpeg unavailable; install it or set tools.ffmpeg_path")
	}
	ui.Success("ffmpeg %s at %s", info.Version, info.Path)

	missing, err := tools.MissingEncoders(ctx)
	switch {
	case err != nil:
		ui.Warn("Could not list encoders: %v", err)
	case len(missing) > 0:
		ui.Error("ffmpeg lacks encoders: %s", strings.Join(missing, ", "))
	default:
		ui.Success("All encoders present")
	}

	if host, err := converter.SnapshotHost(); err != nil {
		log.Debug("host snapshot failed", zap.Error(err))
	} else {
		pterm.DefaultSection.Println("Host")
		fmt.Printf("CPUs:   %d logical, %d physical\n", host.LogicalCPUs, host.PhysicalCPUs)
		fmt.Printf("Memory: %s available of %s\n", formatBytes(host.AvailableMemory), formatBytes(host.TotalMemory))
	}

	if len(missing) > 0 {
		return fmt.Errorf("%d encoder(s) missing", len(missing))
	}
	return nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
