package analysis

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/channel-agent/internal/models"
)

// Granularity is the bucket size of a TimeReport
type Granularity string

const (
	ByHour    Granularity = "hour"
	ByDay     Granularity = "day"
	ByWeekday Granularity = "weekday"
	ByMonth   Granularity = "month"
)

// ParseGranularity validates a granularity name
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case ByHour, ByDay, ByWeekday, ByMonth:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q (hour, day, weekday, month)", s)
}

// Bucket is a group of posts sharing a time key
type Bucket struct {
	Key   string
	Count int
	IDs   []int
}

// TimeReport groups posts by time
type TimeReport struct {
	Granularity Granularity
	Buckets     []Bucket
	Unparsable  int
	First, Last time.Time
}

// Timeline builds a TimeReport
func Timeline(c *models.Corpus, g Granularity) *TimeReport {
	r := &TimeReport{Granularity: g}
	index := make(map[string]int)

	for _, p := range c.Posts {
		t, err := p.Time()
		if err != nil {
			r.Unparsable++
			continue
		}
		if r.First.IsZero() || t.Before(r.First) {
			r.First = t
		}
		if t.After(r.Last) {
			r.Last = t
		}

		key := bucketKey(t, g)
		i, ok := index[key]
		if !ok {
			i = len(r.Buckets)
			index[key] = i
			r.Buckets = append(r.Buckets, Bucket{Key: key})
		}
		r.Buckets[i].Count++
		r.Buckets[i].IDs = append(r.Buckets[i].IDs, p.ID)
	}

	sort.Slice(r.Buckets, func(i, j int) bool { return r.Buckets[i].Key < r.Buckets[j].Key })
	return r
}

func bucketKey(t time.Time, g Granularity) string {
	switch g {
	case ByHour:
		return fmt.Sprintf("%02d:00", t.Hour())
	case ByWeekday:
		// ISO order so Monday sorts first
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return fmt.Sprintf("%d-%s", wd, t.Weekday())
	case ByMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// Render writes one line per bucket with a bar
func (r *TimeReport) Render(w io.Writer) error {
	fmt.Fprintf(w, "=== Posts by %s ===\n", r.Granularity)
	if !r.First.IsZero() {
		fmt.Fprintf(w, "Range: %s .. %s\n", r.First.Format(models.DateLayout), r.Last.Format(models.DateLayout))
	}

	maxCount := 0
	for _, b := range r.Buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	for _, b := range r.Buckets {
		bar := 0
		if maxCount > 0 {
			bar = b.Count * 40 / maxCount
		}
		fmt.Fprintf(w, "%-14s %5d  %s\n", b.Key, b.Count, repeat('#', bar))
	}
	if r.Unparsable > 0 {
		fmt.Fprintf(w, "Unparsable dates: %d\n", r.Unparsable)
	}
	return nil
}

func repeat(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}
