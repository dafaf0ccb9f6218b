package cli

import (
	"fmt"
	"regexp"
	"strings"
)

// filterSpec is one parsed output filter from a piped shell command.
type filterSpec struct {
	name string
	arg  string
}

// parsePipeline splits a shell line on pipes into the base command and
// its output filters, validating each filter's shape.
func parsePipeline(line string) (string, []filterSpec, error) {
	parts := strings.Split(line, "|")
	base := strings.TrimSpace(parts[0])

	var filters []filterSpec
	for _, part := range parts[1:] {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return "", nil, fmt.Errorf("empty output filter")
		}
		spec := filterSpec{name: fields[0], arg: strings.Join(fields[1:], " ")}
		switch spec.name {
		case "match", "except":
			if spec.arg == "" {
				return "", nil, fmt.Errorf("%s: missing pattern", spec.name)
			}
		case "count":
			if spec.arg != "" {
				return "", nil, fmt.Errorf("count takes no argument")
			}
		default:
			return "", nil, fmt.Errorf("unknown output filter: %s", spec.name)
		}
		filters = append(filters, spec)
	}
	return base, filters, nil
}

// applyFilters runs text through each filter in order.
func applyFilters(text string, filters []filterSpec) (string, error) {
	for _, f := range filters {
		var err error
		text, err = applyFilter(text, f)
		if err != nil {
			return "", err
		}
	}
	return text, nil
}

func applyFilter(text string, f filterSpec) (string, error) {
	switch f.name {
	case "match", "except":
		re, err := regexp.Compile(f.arg)
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.name, err)
		}
		keep := f.name == "match"
		var out []string
		for _, line := range splitLines(text) {
			if re.MatchString(line) == keep {
				out = append(out, line)
			}
		}
		if len(out) == 0 {
			return "", nil
		}
		return strings.Join(out, "\n") + "\n", nil

	case "count":
		return fmt.Sprintf("Count: %d lines\n", len(splitLines(text))), nil
	}
	return text, nil
}

func splitLines(text string) []string {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
