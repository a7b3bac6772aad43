package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// LabeledValue returns the first value found by LabeledValues, or "".
func LabeledValue(text string, labels ...string) string {
	if values := LabeledValues(text, labels...); len(values) > 0 {
		return values[0]
	}
	return ""
}

// LabeledValues returns, in text order, the value of every line that starts
// with one of labels. The label must be followed by a colon, whitespace or
// the end of the line, so "Comercio" does not match "Comercios". When the
// label line carries nothing but the label (a table cell flattened to its
// own line) the next non-empty line is the value.
func LabeledValues(text string, labels ...string) []string {
	var values []string
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		for _, label := range labels {
			rest, ok := cutLabel(line, label)
			if !ok {
				continue
			}
			if rest == "" {
				rest = nextNonEmpty(lines[i+1:])
			}
			if rest != "" {
				values = append(values, rest)
			}
			break
		}
	}
	return values
}

// cutLabel reports whether line starts with label at a word boundary and
// returns the text after the label and its separator.
func cutLabel(line, label string) (string, bool) {
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}
	after := line[len(label):]
	if after != "" {
		r, _ := utf8.DecodeRuneInString(after)
		if r != ':' && !unicode.IsSpace(r) {
			return "", false
		}
	}
	return strings.TrimSpace(strings.TrimLeft(after, ": \t")), true
}

func nextNonEmpty(lines []string) string {
	for _, next := range lines {
		if next = strings.TrimSpace(next); next != "" {
			return next
		}
	}
	return ""
}
