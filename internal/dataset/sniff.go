package dataset

import (
	"fmt"
	"strings"
)

// sniffLines is how many non-empty lines the sniffer inspects.
const sniffLines = 5

// SniffDelimiter returns explicit when it is set; otherwise it guesses between
// tab and comma from the first non-empty lines of content, defaulting to tab.
func SniffDelimiter(content string, explicit rune) rune {
	if explicit != 0 {
		return explicit
	}
	var tabs, commas, n int
	for _, line := range strings.Split(content, "\n") {
		if n == sniffLines {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		tabs += strings.Count(line, "\t")
		commas += strings.Count(line, ",")
		n++
	}
	var avgTabs, avgCommas float64
	if n > 0 {
		avgTabs = float64(tabs) / float64(n)
		avgCommas = float64(commas) / float64(n)
	}
	switch {
	case avgTabs > avgCommas && avgTabs > 2:
		return '\t'
	case avgCommas > 2:
		return ','
	default:
		return '\t'
	}
}

// ParseDelimiter maps a user-facing delimiter name to a rune. "auto" and the
// empty string yield 0, meaning the sniffer decides.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %s (use comma|tab|semicolon|auto)", s)
	}
}

// DelimiterName is the inverse of ParseDelimiter for display.
func DelimiterName(r rune) string {
	switch r {
	case ',':
		return "comma"
	case '\t':
		return "tab"
	case ';':
		return "semicolon"
	case 0:
		return "auto"
	default:
		return string(r)
	}
}
