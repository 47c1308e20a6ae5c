package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"duoconv/core/session"
	"duoconv/internal/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past conversion runs",
	Long: `Show past conversion runs, newest first. Runs marked * were interrupted.
Pass a run id to list the outcome of every file in that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	sess, closeSession := openSession()
	defer closeSession()

	if len(args) == 1 {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		files, err := sess.HistoryFiles(id)
		if err != nil {
			return historyErr(err)
		}
		for _, f := range files {
			fmt.Printf("%-8s %s {%s}\n", f.Status, f.Path, strings.Join(f.Formats, ","))
			for _, e := range f.Errors {
				fmt.Printf("         %s\n", e)
			}
		}
		return nil
	}

	runs, err := sess.History(historyLimit)
	if err != nil {
		return historyErr(err)
	}
	return ui.RenderHistory(runs)
}

func historyErr(err error) error {
	if errors.Is(err, session.ErrHistoryDisabled) {
		return fmt.Errorf("%w (set history.enabled: true)", err)
	}
	return err
}
