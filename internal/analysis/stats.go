package analysis

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/internal/textutil"
)

// BonusKeywords are the offer terms counted by Stats
var BonusKeywords = []string{
	"giri gratis",
	"free spin",
	"senza deposito",
	"primo deposito",
	"cashback",
	"bonus",
}

// StatsReport holds general corpus figures
type StatsReport struct {
	Posts          int
	MinLength      int
	MaxLength      int
	AvgLength      float64
	MedianLength   int
	WithLinks      int
	EmojiOpenings  int
	KeywordCounts  map[string]int
	ShortestPostID int
	LongestPostID  int
}

// Stats builds a StatsReport. Lengths are in runes of the tag-stripped text.
func Stats(c *models.Corpus) *StatsReport {
	r := &StatsReport{
		Posts:         len(c.Posts),
		KeywordCounts: make(map[string]int),
	}
	if len(c.Posts) == 0 {
		return r
	}

	lengths := make([]int, 0, len(c.Posts))
	total := 0
	for i, p := range c.Posts {
		n := len([]rune(textutil.StripTags(p.Text)))
		lengths = append(lengths, n)
		total += n

		if i == 0 || n < r.MinLength {
			r.MinLength = n
			r.ShortestPostID = p.ID
		}
		if n > r.MaxLength {
			r.MaxLength = n
			r.LongestPostID = p.ID
		}
		if len(textutil.URLs(p.Text)) > 0 {
			r.WithLinks++
		}
		if textutil.StartsWithEmoji(p.Text) {
			r.EmojiOpenings++
		}

		lower := strings.ToLower(p.Text)
		for _, kw := range BonusKeywords {
			if strings.Contains(lower, kw) {
				r.KeywordCounts[kw]++
			}
		}
	}

	sort.Ints(lengths)
	r.MedianLength = lengths[len(lengths)/2]
	r.AvgLength = float64(total) / float64(len(lengths))

	return r
}

// Render writes the report
func (r *StatsReport) Render(w io.Writer) error {
	fmt.Fprintf(w, "=== Corpus Stats ===\n")
	fmt.Fprintf(w, "Posts:           %d\n", r.Posts)
	if r.Posts == 0 {
		return nil
	}
	fmt.Fprintf(w, "Length min/avg/median/max: %d / %.0f / %d / %d\n", r.MinLength, r.AvgLength, r.MedianLength, r.MaxLength)
	fmt.Fprintf(w, "Shortest post:   #%d\n", r.ShortestPostID)
	fmt.Fprintf(w, "Longest post:    #%d\n", r.LongestPostID)
	fmt.Fprintf(w, "With links:      %d\n", r.WithLinks)
	fmt.Fprintf(w, "Emoji openings:  %d\n", r.EmojiOpenings)

	fmt.Fprintf(w, "\nKeywords:\n")
	for _, kw := range BonusKeywords {
		fmt.Fprintf(w, "  %-16s %d\n", kw, r.KeywordCounts[kw])
	}
	return nil
}
