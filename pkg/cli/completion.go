package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// completionCandidate is a completable word and its help text.
type completionCandidate struct {
	name string
	desc string
}

var shellCommands = []completionCandidate{
	{name: "show", desc: "Show workspace state"},
	{name: "load", desc: "Load a directory of configurations"},
	{name: "template", desc: "Synthesize a template from two configurations"},
	{name: "monitor", desc: "Stream workspace events"},
	{name: "help", desc: "Show command help"},
	{name: "quit", desc: "Leave the shell"},
}

var showTargets = []completionCandidate{
	{name: "configs", desc: "List loaded configurations"},
	{name: "config", desc: "Show a configuration's text"},
	{name: "diff", desc: "Diff two configurations"},
	{name: "interfaces", desc: "Tabulate per-interface changes"},
	{name: "history", desc: "Show recent operations"},
	{name: "events", desc: "Show recent events"},
}

var pipeFilters = []completionCandidate{
	{name: "count", desc: "Count output lines"},
	{name: "except", desc: "Show only lines that do not match a pattern"},
	{name: "match", desc: "Show only lines that match a pattern"},
}

// completeShellLine returns the candidates for the word being typed at
// the end of text, plus the partial word they complete (every candidate
// has it as a prefix). names are the loaded configuration names, offered
// where a command expects one.
func completeShellLine(text string, names []string) ([]completionCandidate, string) {
	if idx := strings.LastIndex(text, "|"); idx >= 0 {
		return completePipeFilter(text[idx+1:])
	}

	words := strings.Fields(text)
	partial := lastWord(text)
	// The argument position being completed: completed words, not
	// counting the partial one.
	argPos := len(words)
	if partial != "" {
		argPos--
	}

	if argPos == 0 {
		return filterCandidates(shellCommands, partial), partial
	}

	switch words[0] {
	case "show":
		if argPos == 1 {
			return filterCandidates(showTargets, partial), partial
		}
		switch words[1] {
		case "config":
			if argPos == 2 {
				return filterCandidates(nameCandidates(names), partial), partial
			}
		case "diff", "interfaces":
			if argPos == 2 || argPos == 3 {
				return filterCandidates(nameCandidates(names), partial), partial
			}
		}
	case "template":
		// template <base> <other> <interface>; the interface argument is
		// free-form, so only the config name positions complete.
		if argPos == 1 || argPos == 2 {
			return filterCandidates(nameCandidates(names), partial), partial
		}
	}
	return nil, partial
}

func filterCandidates(candidates []completionCandidate, partial string) []completionCandidate {
	if partial == "" {
		return candidates
	}
	var out []completionCandidate
	for _, c := range candidates {
		if strings.HasPrefix(c.name, partial) {
			out = append(out, c)
		}
	}
	return out
}

func nameCandidates(names []string) []completionCandidate {
	out := make([]completionCandidate, len(names))
	for i, name := range names {
		out[i] = completionCandidate{name: name, desc: "(loaded)"}
	}
	return out
}

// completePipeFilter completes the filter word after the last pipe.
// after is everything past the pipe character.
func completePipeFilter(after string) ([]completionCandidate, string) {
	trailingSpace := len(after) > 0 && (after[len(after)-1] == ' ' || after[len(after)-1] == '\t')
	trimmed := strings.TrimSpace(after)

	if trimmed == "" {
		return pipeFilters, ""
	}
	// A completed filter name is followed by its free-form argument.
	if trailingSpace {
		return nil, ""
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 1 {
		return nil, ""
	}
	return filterCandidates(pipeFilters, fields[0]), fields[0]
}

// lastWord returns the word being typed at the end of text, or "" when
// text ends on whitespace.
func lastWord(text string) string {
	if text == "" || text[len(text)-1] == ' ' || text[len(text)-1] == '\t' {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// writeCompletionHelp prints aligned candidates, Junos-style.
func writeCompletionHelp(w io.Writer, candidates []completionCandidate) {
	sorted := make([]completionCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	width := 12
	for _, c := range sorted {
		if len(c.name)+2 > width {
			width = len(c.name) + 2
		}
	}
	fmt.Fprintln(w, "Possible completions:")
	for _, c := range sorted {
		if c.desc != "" {
			fmt.Fprintf(w, "  %-*s %s\n", width, c.name, c.desc)
		} else {
			fmt.Fprintf(w, "  %s\n", c.name)
		}
	}
}

// shellCompleter adapts completeShellLine to readline's AutoComplete
// interface: it returns the suffixes that extend the partial word.
type shellCompleter struct {
	shell *Shell
}

func (sc *shellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	candidates, partial := completeShellLine(text, sc.shell.ws.Names())
	if len(candidates) == 0 {
		return nil, 0
	}

	out := make([][]rune, len(candidates))
	for i, c := range candidates {
		out[i] = []rune(c.name[len(partial):] + " ")
	}
	return out, len(partial)
}
