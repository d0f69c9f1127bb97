package analysis

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/internal/textutil"
)

const urlExpr = textutil.URLExpr

// Link format patterns, checked in models.AllLinkFormats order
var linkPatterns = map[models.LinkFormat]*regexp.Regexp{
	models.LinkFormatHTMLLink:     regexp.MustCompile(`(?is)<a\s+[^>]*href=["'][^"']+["'][^>]*>.*?</a>`),
	models.LinkFormatMarkdownLink: regexp.MustCompile(`\[[^\]]+\]\(` + urlExpr + `\)`),
	models.LinkFormatEmojiURL:     regexp.MustCompile(`[\p{So}\x{1F000}-\x{1FAFF}]\x{FE0F}?\s*` + urlExpr),
	models.LinkFormatTextArrowURL: regexp.MustCompile(`(?:\S\s*(?:→|->|=>|»)|[\p{L}\p{N}]\s*:)\s*` + urlExpr),
	models.LinkFormatURLDashText:  regexp.MustCompile(urlExpr + `\s+[-–—]\s+\S`),
	models.LinkFormatTextDashURL:  regexp.MustCompile(`\S\s+[-–—]\s+` + urlExpr),
	models.LinkFormatBareURL:      regexp.MustCompile(urlExpr),
}

// ClassifyLine returns the link format used on a single line, or
// LinkFormatNone when the line carries no link
func ClassifyLine(line string) models.LinkFormat {
	for _, f := range models.AllLinkFormats {
		if linkPatterns[f].MatchString(line) {
			return f
		}
	}
	return models.LinkFormatNone
}

// ClassifyText returns the format of every line that carries a link
func ClassifyText(text string) []models.LinkFormat {
	var formats []models.LinkFormat
	for _, line := range strings.Split(text, "\n") {
		if f := ClassifyLine(line); f != models.LinkFormatNone {
			formats = append(formats, f)
		}
	}
	return formats
}

// LinkReport counts link formats across a corpus
type LinkReport struct {
	TotalPosts   int
	PostsNoLinks int
	Occurrences  map[models.LinkFormat]int
	Posts        map[models.LinkFormat]int
	Examples     map[models.LinkFormat]string
	Domains      map[string]int
}

// Links builds a LinkReport
func Links(c *models.Corpus) *LinkReport {
	r := &LinkReport{
		TotalPosts:  len(c.Posts),
		Occurrences: make(map[models.LinkFormat]int),
		Posts:       make(map[models.LinkFormat]int),
		Examples:    make(map[models.LinkFormat]string),
		Domains:     make(map[string]int),
	}

	for _, p := range c.Posts {
		formats := ClassifyText(p.Text)
		if len(formats) == 0 {
			r.PostsNoLinks++
			continue
		}

		seen := make(map[models.LinkFormat]bool)
		for _, f := range formats {
			r.Occurrences[f]++
			if !seen[f] {
				seen[f] = true
				r.Posts[f]++
			}
			if _, ok := r.Examples[f]; !ok {
				r.Examples[f] = exampleLine(p.Text, f)
			}
		}

		for _, u := range textutil.URLs(p.Text) {
			r.Domains[domainOf(u)]++
		}
	}

	return r
}

func exampleLine(text string, f models.LinkFormat) string {
	for _, line := range strings.Split(text, "\n") {
		if ClassifyLine(line) == f {
			return truncate(strings.TrimSpace(line), 80)
		}
	}
	return ""
}

func domainOf(raw string) string {
	if strings.HasPrefix(raw, "www.") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// Render writes the report as a table
func (r *LinkReport) Render(w io.Writer) error {
	fmt.Fprintf(w, "=== Link Formats ===\n")
	fmt.Fprintf(w, "Posts:          %d\n", r.TotalPosts)
	fmt.Fprintf(w, "Posts no links: %d\n\n", r.PostsNoLinks)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tLINKS\tPOSTS\tEXAMPLE")
	for _, f := range models.AllLinkFormats {
		if r.Occurrences[f] == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", f, r.Occurrences[f], r.Posts[f], r.Examples[f])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Domains) > 0 {
		fmt.Fprintf(w, "\n=== Domains ===\n")
		for _, kv := range sortedCounts(r.Domains) {
			fmt.Fprintf(w, "%6d  %s\n", kv.count, kv.key)
		}
	}
	return nil
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
