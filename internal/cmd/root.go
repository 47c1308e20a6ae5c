package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duoconv/config"
	"duoconv/core/session"
	"duoconv/core/state"
	"duoconv/internal/logger"
	"duoconv/internal/ui"
	"duoconv/internal/version"
)

var (
	cfgFile string
	verbose bool
	log     *zap.Logger
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "duoconv",
	Short: "Batch convert videos to OGG (Theora/Vorbis) and WebM (VP9/Opus)",
	Long: `duoconv converts video files to OGG and WebM with ffmpeg, several files at a time.

Each file can be converted to either format or both. Outputs are written to a
"converted" folder next to each source file. Run without a subcommand for the
interactive menu.`,
	Version:           version.GetVersionWithPrefix(),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runInteractive,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.duoconv.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(convertCmd, presetCmd, historyCmd, depsCmd)
}

// setup loads the configuration and builds the logger from it.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.NewConfig(cfgFile, zap.NewNop())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err = logger.NewLoggerWithConfig(&logger.LoggerConfig{
		Verbose:    verbose,
		EnableFile: cfg.Logging.EnableFile,
		Level:      cfg.Logging.Level,
		LogDir:     cfg.Logging.LogDir,
		Component:  "duoconv",
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	log.Debug("duoconv initialized",
		zap.String("version", version.GetFullVersionInfo()),
		zap.String("ffmpeg", cfg.Tools.FFmpegPath),
		zap.String("presets", cfg.Presets.File))
	return nil
}

// openSession wires the session with its optional run journal. The returned
// func releases the journal.
func openSession() (*session.Session, func()) {
	var history *state.Manager
	if cfg.History.Enabled {
		h, err := state.NewManager(cfg.History.DBPath, log.Named("history"))
		if err != nil {
			// another duoconv may hold the lock; convert without a journal
			log.Warn("run history unavailable", zap.String("db", cfg.History.DBPath), zap.Error(err))
		} else {
			history = h
			if u := h.Unfinished(); u != nil {
				ui.Warn("The previous batch (%s, started %s) did not finish.", u.Message, u.Timestamp.Format("2006-01-02 15:04"))
			}
		}
	}

	sess := session.New(cfg, log, session.Options{History: history})
	return sess, func() {
		if history != nil {
			if err := history.Close(); err != nil {
				log.Warn("close history", zap.Error(err))
			}
		}
		_ = log.Sync()
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM. Running conversions finish;
// files not yet started are dropped.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
