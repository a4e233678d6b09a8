package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pypi2pkgbuild.

Bash:
  $ source <(pypi2pkgbuild completion bash)
  $ pypi2pkgbuild completion bash > /usr/share/bash-completion/completions/pypi2pkgbuild

Zsh:
  $ pypi2pkgbuild completion zsh > "${fpath[1]}/_pypi2pkgbuild"

Fish:
  $ pypi2pkgbuild completion fish > ~/.config/fish/completions/pypi2pkgbuild.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			default:
				return cmd.Root().GenFishCompletion(out, true)
			}
		},
	}
}
