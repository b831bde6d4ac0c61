package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for memeforge.

To load completions:

Bash:
  $ source <(memeforge completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ memeforge completion bash > /etc/bash_completion.d/memeforge
  # macOS:
  $ memeforge completion bash > $(brew --prefix)/etc/bash_completion.d/memeforge

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ memeforge completion zsh > "${fpath[1]}/_memeforge"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ memeforge completion fish | source

  # To load completions for each session, execute once:
  $ memeforge completion fish > ~/.config/fish/completions/memeforge.fish

PowerShell:
  PS> memeforge completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> memeforge completion powershell > memeforge.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
