package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v4"

	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
	"github.com/confloom/confloom/pkg/extract"
	"github.com/confloom/confloom/pkg/synth"
)

// loadTree parses a configuration file and reports its diagnostics on w,
// one line each, prefixed with the file name.
func loadTree(path string, w io.Writer) (*conftree.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, diags := conftree.NewParser(string(data)).Parse()
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s\n", path, d)
	}
	return tree, nil
}

func newParseCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a configuration file and dump its tree",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := flags.mode()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree, diags := conftree.NewParser(string(data)).Parse()
			if len(diags) > 0 {
				diagnosticsTable(cmd.ErrOrStderr(), diags)
			}
			switch mode {
			case modeJSON:
				return writeJSON(cmd.OutOrStdout(), tree)
			case modeYAML:
				return writeYAML(cmd.OutOrStdout(), tree)
			default:
				treeTable(cmd.OutOrStdout(), tree)
				return nil
			}
		},
	}
}

func newFmtCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Reformat a configuration file into its normalized form",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree, diags := conftree.NewParser(string(data)).Parse()
			for _, d := range diags {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], d)
			}
			text := conftree.Render(tree)
			if !write {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			// Unparseable lines do not survive a parse/render round trip, so
			// rewriting would silently drop them.
			if len(diags) > 0 {
				return fmt.Errorf("%s: %d unparseable lines, refusing to rewrite", args[0], len(diags))
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], []byte(text), info.Mode().Perm())
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the file in place instead of printing")
	return cmd
}

func newDiffCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <fileA> <fileB>",
		Short: "List the changes between two configuration files",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := flags.mode()
			if err != nil {
				return err
			}
			a, err := loadTree(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			b, err := loadTree(args[1], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			changes := diff.Diff(a.Generic(), b.Generic(), flags.diffOptions()...)
			switch mode {
			case modeJSON:
				return writeJSON(cmd.OutOrStdout(), changes)
			case modeYAML:
				return writeYAML(cmd.OutOrStdout(), changes)
			default:
				changesTable(cmd.OutOrStdout(), changes)
				return nil
			}
		},
	}
}

func newInterfacesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces <fileA> <fileB>",
		Short: "Tabulate per-interface attribute changes between two files",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := flags.mode()
			if err != nil {
				return err
			}
			a, err := loadTree(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			b, err := loadTree(args[1], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			changes := diff.Diff(a.Generic(), b.Generic(), flags.diffOptions()...)
			tbl := extract.Interfaces(changes)
			switch mode {
			case modeJSON:
				return writeJSON(cmd.OutOrStdout(), tbl)
			case modeYAML:
				return writeYAML(cmd.OutOrStdout(), tbl)
			default:
				interfacesTable(cmd.OutOrStdout(), tbl)
				return nil
			}
		},
	}
}

func newTemplateCmd() *cobra.Command {
	var ifaceName string
	var varsFile string
	cmd := &cobra.Command{
		Use:   "template <fileA> <fileB>",
		Short: "Synthesize a loop template from the differences between two files",
		Long: `Template diffs two configuration files, extracts the attributes of the
chosen interface from the changes, and rewrites the first file's tree
into a template: the differing subtrees collapse into a loop and the
extracted attribute values become {{interface.*}} placeholders.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ifaceName == "" {
				return usageError{fmt.Errorf("--interface is required")}
			}
			a, err := loadTree(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			b, err := loadTree(args[1], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			changes := diff.Diff(a.Generic(), b.Generic())
			tbl := extract.Interfaces(changes)
			entry, ok := tbl[ifaceName]
			if !ok {
				names := make([]string, 0, len(tbl))
				for name := range tbl {
					names = append(names, name)
				}
				sort.Strings(names)
				if len(names) == 0 {
					return fmt.Errorf("no interface differs between %s and %s", args[0], args[1])
				}
				return fmt.Errorf("interface %q does not differ between the inputs (have: %s)",
					ifaceName, strings.Join(names, ", "))
			}

			vars := map[string]any{"name": ifaceName}
			for k, v := range entry {
				vars[k] = v
			}
			if varsFile != "" {
				overlay, err := readVars(varsFile)
				if err != nil {
					return err
				}
				for k, v := range overlay {
					vars[k] = v
				}
			}

			tree := synth.Synthesize(a, changes, map[string]any{"interface": vars})
			fmt.Fprint(cmd.OutOrStdout(), synth.CleanRendered(conftree.Render(tree)))
			return nil
		},
	}
	cmd.Flags().StringVar(&ifaceName, "interface", "", "Interface whose extracted attributes parameterize the template")
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file of variables overlaid on the extracted attributes")
	return cmd
}

// readVars loads a YAML mapping of substitution variables.
func readVars(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vars map[string]any
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return vars, nil
}
