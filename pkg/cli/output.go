package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	yaml "go.yaml.in/yaml/v4"

	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
	"github.com/confloom/confloom/pkg/extract"
	"github.com/confloom/confloom/pkg/logging"
	"github.com/confloom/confloom/pkg/workspace"
)

type outputMode string

const (
	modeTable outputMode = "table"
	modeJSON  outputMode = "json"
	modeYAML  outputMode = "yaml"
)

func parseMode(s string) (outputMode, error) {
	switch m := outputMode(s); m {
	case modeTable, modeJSON, modeYAML:
		return m, nil
	default:
		return "", usageError{fmt.Errorf("unknown output format %q (want table, json, or yaml)", s)}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// formatValue renders a change-record value for a table cell.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(data)
	}
}

// treeTable dumps a parsed tree as one row per node, depth shown by
// indenting the name column.
func treeTable(w io.Writer, root *conftree.Node) {
	t := newTable(w)
	t.AppendHeader(table.Row{"LINE", "KIND", "NAME", "VALUE"})
	var walk func(nodes []*conftree.Node, depth int)
	walk = func(nodes []*conftree.Node, depth int) {
		for _, n := range nodes {
			line := ""
			if n.Line > 0 {
				line = strconv.Itoa(n.Line)
			}
			t.AppendRow(table.Row{line, n.Kind.String(), strings.Repeat("  ", depth) + n.Name, n.Value})
			walk(n.Children, depth+1)
		}
	}
	walk(root.Children, 0)
	t.Render()
}

func diagnosticsTable(w io.Writer, diags []conftree.Diagnostic) {
	t := newTable(w)
	t.AppendHeader(table.Row{"LINE", "UNPARSEABLE TEXT"})
	for _, d := range diags {
		t.AppendRow(table.Row{d.Line, d.Text})
	}
	t.Render()
}

func changesTable(w io.Writer, changes []diff.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "(no changes)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"TYPE", "SEMANTIC PATH", "OLD", "NEW"})
	for _, ch := range changes {
		t.AppendRow(table.Row{
			string(ch.Type),
			ch.SemanticPath.String(),
			formatValue(ch.OldValue),
			formatValue(ch.NewValue),
		})
	}
	t.Render()
	fmt.Fprintf(w, "(%d changes)\n", len(changes))
}

func interfacesTable(w io.Writer, tbl extract.Table) {
	if len(tbl) == 0 {
		fmt.Fprintln(w, "(no interface changes)")
		return
	}
	names := make([]string, 0, len(tbl))
	for name := range tbl {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable(w)
	t.AppendHeader(table.Row{"INTERFACE", "ATTRIBUTE", "VALUE"})
	for _, name := range names {
		rows := flattenEntry(tbl[name])
		if len(rows) == 0 {
			t.AppendRow(table.Row{name, "", ""})
			continue
		}
		for _, r := range rows {
			t.AppendRow(table.Row{name, r.attr, r.value})
		}
	}
	t.Render()
}

type attrRow struct {
	attr  string
	value string
}

// flattenEntry turns a nested attribute map into sorted dotted-path rows.
func flattenEntry(entry map[string]any) []attrRow {
	var rows []attrRow
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		m, ok := v.(map[string]any)
		if !ok {
			rows = append(rows, attrRow{attr: prefix, value: formatValue(v)})
			return
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walk(p, m[k])
		}
	}
	walk("", entry)
	return rows
}

func configsTable(w io.Writer, cfgs []*workspace.Config) {
	if len(cfgs) == 0 {
		fmt.Fprintln(w, "(no configurations loaded)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAME", "BYTES", "DIAGNOSTICS", "LOADED"})
	for _, cfg := range cfgs {
		t.AppendRow(table.Row{
			cfg.Name,
			len(cfg.Text),
			len(cfg.Diagnostics),
			cfg.LoadedAt.Format("15:04:05"),
		})
	}
	t.Render()
}

func historyTable(w io.Writer, records []*workspace.OpRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "(no operations recorded)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"SEQ", "TIME", "OPERATION", "ARGS", "DETAIL"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Seq,
			r.Time.Format("15:04:05"),
			r.Op,
			strings.Join(r.Args, " "),
			r.Detail,
		})
	}
	t.Render()
}

func eventsTable(w io.Writer, events []logging.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "(no events)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"TIME", "LEVEL", "OP", "TARGET", "DETAIL"})
	for _, ev := range events {
		t.AppendRow(table.Row{
			ev.Time.Format("15:04:05"),
			ev.Level,
			ev.Op,
			ev.Target,
			ev.Detail,
		})
	}
	t.Render()
}
