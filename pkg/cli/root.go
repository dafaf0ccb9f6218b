// Package cli implements the confloom command-line interface: file-based
// parse, diff, and template commands plus an interactive shell over a
// configuration workspace.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/confloom/confloom/pkg/diff"
)

// usageError marks errors caused by bad invocations (unknown flags, wrong
// argument counts) so Execute can map them to a distinct exit status.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{fmt.Errorf("accepts %d arg(s), received %d", n, len(args))}
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > n {
			return usageError{fmt.Errorf("accepts at most %d arg(s), received %d", n, len(args))}
		}
		return nil
	}
}

// rootFlags carries the persistent flag values shared by every command.
type rootFlags struct {
	output           string
	orderInsensitive bool
	maxDepth         int
}

func (f *rootFlags) mode() (outputMode, error) {
	return parseMode(f.output)
}

// diffOptions maps the persistent comparison flags onto diff options.
func (f *rootFlags) diffOptions() []diff.Option {
	var opts []diff.Option
	if f.orderInsensitive {
		opts = append(opts, diff.WithOrderSignificant(false))
	}
	if f.maxDepth > 0 {
		opts = append(opts, diff.WithMaxDepth(f.maxDepth))
	}
	return opts
}

// NewRootCmd assembles the confloom command tree.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "confloom",
		Short: "Parse, diff, and templatize network device configurations",
		Long: `confloom works with vendor network-device configuration text: it parses
the curly-brace stanza format into a tree, computes structural and
semantic diffs between two configurations, tabulates per-interface
attribute changes, and synthesizes loop templates with placeholder
variables from the differences.

File-based commands operate directly on configuration files; the shell
command opens an interactive workspace, and confloomd serves the same
operations over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "table", "Output format (table|json|yaml)")
	root.PersistentFlags().BoolVar(&flags.orderInsensitive, "order-insensitive", false, "Match array elements by structural similarity instead of position")
	root.PersistentFlags().IntVar(&flags.maxDepth, "max-depth", 0, "Bound diff recursion depth (0 means unlimited)")

	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newParseCmd(flags),
		newFmtCmd(),
		newDiffCmd(flags),
		newInterfacesCmd(flags),
		newTemplateCmd(),
		newShellCmd(),
		newCompletionCmd(),
	)
	return root
}

// Execute runs the command tree and maps the outcome onto an exit status:
// 0 on success, 1 on operational errors, 2 on usage errors.
func Execute() int {
	err := NewRootCmd().Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "confloom: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// newCompletionCmd generates shell completion scripts.
func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for confloom.

Bash:
  $ source <(confloom completion bash)

Zsh:
  $ confloom completion zsh > "${fpath[1]}/_confloom"

Fish:
  $ confloom completion fish | source
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(exactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			}
			return nil
		},
	}
}
