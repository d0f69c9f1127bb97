package analysis

import (
	"fmt"
	"io"
	"sort"

	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/internal/textutil"
)

// DefaultSimilarity is the shingle Jaccard above which two posts count as
// near-duplicates
const DefaultSimilarity = 0.6

// openingWords is how many words of the first line make an opening signature
const openingWords = 5

// DuplicateGroup is a set of posts with the same normalized text
type DuplicateGroup struct {
	IDs     []int
	Preview string
}

// NearDuplicate is a pair of posts that look alike
type NearDuplicate struct {
	A, B       int
	Similarity float64
	Reason     string // "opening" or "similarity"
}

// DuplicateReport lists exact and near duplicates
type DuplicateReport struct {
	TotalPosts int
	Exact      []DuplicateGroup
	Near       []NearDuplicate
}

// Duplicates builds a DuplicateReport. threshold <= 0 uses DefaultSimilarity.
func Duplicates(c *models.Corpus, threshold float64) *DuplicateReport {
	if threshold <= 0 {
		threshold = DefaultSimilarity
	}

	r := &DuplicateReport{TotalPosts: len(c.Posts)}

	groups := make(map[string][]int)
	var order []string
	previews := make(map[string]string)
	for _, p := range c.Posts {
		key := textutil.Normalize(p.Text)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
			previews[key] = truncate(firstLine(p.Text), 60)
		}
		groups[key] = append(groups[key], p.ID)
	}

	exact := make(map[int]bool)
	for _, key := range order {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		r.Exact = append(r.Exact, DuplicateGroup{IDs: ids, Preview: previews[key]})
		for _, id := range ids[1:] {
			exact[id] = true
		}
	}

	type prepared struct {
		id       int
		opening  string
		shingles map[string]struct{}
	}
	items := make([]prepared, 0, len(c.Posts))
	for _, p := range c.Posts {
		if exact[p.ID] {
			continue
		}
		items = append(items, prepared{
			id:       p.ID,
			opening:  textutil.OpeningSignature(p.Text, openingWords),
			shingles: textutil.Shingles(p.Text, 3),
		})
	}

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			sim := textutil.Jaccard(a.shingles, b.shingles)
			switch {
			case sim >= threshold:
				r.Near = append(r.Near, NearDuplicate{A: a.id, B: b.id, Similarity: sim, Reason: "similarity"})
			case a.opening != "" && a.opening == b.opening && wordCount(a.opening) >= 3:
				r.Near = append(r.Near, NearDuplicate{A: a.id, B: b.id, Similarity: sim, Reason: "opening"})
			}
		}
	}

	sort.SliceStable(r.Near, func(i, j int) bool {
		return r.Near[i].Similarity > r.Near[j].Similarity
	})

	return r
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' {
			inWord = false
		} else if !inWord {
			inWord = true
			n++
		}
	}
	return n
}

// Render writes the report
func (r *DuplicateReport) Render(w io.Writer) error {
	fmt.Fprintf(w, "=== Duplicates ===\n")
	fmt.Fprintf(w, "Posts:            %d\n", r.TotalPosts)
	fmt.Fprintf(w, "Exact groups:     %d\n", len(r.Exact))
	fmt.Fprintf(w, "Near duplicates:  %d\n", len(r.Near))

	if len(r.Exact) > 0 {
		fmt.Fprintf(w, "\nExact:\n")
		for _, g := range r.Exact {
			fmt.Fprintf(w, "  %v  %s\n", g.IDs, g.Preview)
		}
	}
	if len(r.Near) > 0 {
		fmt.Fprintf(w, "\nNear:\n")
		for _, n := range r.Near {
			fmt.Fprintf(w, "  #%d ~ #%d  %.2f (%s)\n", n.A, n.B, n.Similarity, n.Reason)
		}
	}
	return nil
}
