package cli

import (
	"strings"
	"testing"
)

func candidateNames(candidates []completionCandidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

func TestCompleteShellLine(t *testing.T) {
	names := []string{"base", "cand"}

	tests := []struct {
		text        string
		want        []string
		wantPartial string
	}{
		{text: "", want: []string{"show", "load", "template", "monitor", "help", "quit"}},
		{text: "sh", want: []string{"show"}, wantPartial: "sh"},
		{text: "q", want: []string{"quit"}, wantPartial: "q"},
		{text: "show ", want: []string{"configs", "config", "diff", "interfaces", "history", "events"}},
		{text: "show d", want: []string{"diff"}, wantPartial: "d"},
		{text: "show co", want: []string{"configs", "config"}, wantPartial: "co"},
		{text: "show diff ", want: []string{"base", "cand"}},
		{text: "show diff b", want: []string{"base"}, wantPartial: "b"},
		{text: "show diff base ", want: []string{"base", "cand"}},
		{text: "show diff base cand ", want: nil},
		{text: "show config ", want: []string{"base", "cand"}},
		{text: "show history ", want: nil},
		{text: "template ", want: []string{"base", "cand"}},
		{text: "template base c", want: []string{"cand"}, wantPartial: "c"},
		{text: "template base cand ", want: nil},
		{text: "load ", want: nil},
		{text: "bogus ", want: nil},
		{text: "show configs | ", want: []string{"count", "except", "match"}},
		{text: "show configs |", want: []string{"count", "except", "match"}},
		{text: "show configs | ma", want: []string{"match"}, wantPartial: "ma"},
		{text: "show configs | match ", want: nil},
		{text: "show configs | match ge", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			candidates, partial := completeShellLine(tt.text, names)
			got := candidateNames(candidates)
			if len(got) != len(tt.want) {
				t.Fatalf("candidates = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("candidates = %v, want %v", got, tt.want)
				}
			}
			if partial != tt.wantPartial {
				t.Errorf("partial = %q, want %q", partial, tt.wantPartial)
			}
			for _, c := range candidates {
				if !strings.HasPrefix(c.name, partial) {
					t.Errorf("candidate %q does not extend partial %q", c.name, partial)
				}
			}
		})
	}
}

func TestLastWord(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", ""},
		{"show", "show"},
		{"show ", ""},
		{"show di", "di"},
		{"show  diff  ba", "ba"},
		{"show\t", ""},
	}
	for _, tt := range tests {
		if got := lastWord(tt.text); got != tt.want {
			t.Errorf("lastWord(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestWriteCompletionHelp(t *testing.T) {
	var b strings.Builder
	writeCompletionHelp(&b, []completionCandidate{
		{name: "zeta", desc: "last"},
		{name: "alpha", desc: "first"},
	})
	out := b.String()
	if !strings.HasPrefix(out, "Possible completions:\n") {
		t.Errorf("missing heading: %q", out)
	}
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("candidates not sorted:\n%s", out)
	}
}
