package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate a shell completion script",
	Long: `Generate the completion script for the given shell.

Bash:
  source <(duoconv completion bash)
  # or add it to ~/.bashrc:
  echo 'source <(duoconv completion bash)' >> ~/.bashrc

Zsh:
  source <(duoconv completion zsh)

Fish:
  duoconv completion fish | source

PowerShell:
  duoconv completion powershell | Out-String | Invoke-Expression`,
	PersistentPreRunE:     func(*cobra.Command, []string) error { return nil },
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			if err := cmd.Root().GenBashCompletion(os.Stdout); err != nil {
				cmd.PrintErrf("Error generating bash completion: %v\n", err)
			}
		case "zsh":
			if err := cmd.Root().GenZshCompletion(os.Stdout); err != nil {
				cmd.PrintErrf("Error generating zsh completion: %v\n", err)
			}
		case "fish":
			if err := cmd.Root().GenFishCompletion(os.Stdout, true); err != nil {
				cmd.PrintErrf("Error generating fish completion: %v\n", err)
			}
		case "powershell":
			if err := cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout); err != nil {
				cmd.PrintErrf("Error generating powershell completion: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
