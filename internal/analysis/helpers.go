// Package analysis holds the read-only corpus reports: link formats,
// duplicates, time grouping and general stats.
package analysis

import "strings"

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}
