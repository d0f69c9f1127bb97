package models

import (
	"time"
)

// DateLayout is the ISO8601 layout used for post dates. Telegram exports
// write local time without a zone.
const DateLayout = "2006-01-02T15:04:05"

// Post is a single text entry extracted from a Telegram chat export
type Post struct {
	ID   int    `json:"id"`
	Date string `json:"date"`
	Text string `json:"text"`
}

// Time parses the post date. Dates with a zone offset are accepted as well.
func (p Post) Time() (time.Time, error) {
	if t, err := time.Parse(DateLayout, p.Date); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, p.Date)
}

// Corpus is the flat post file written by the extractor and read by every
// analysis command
type Corpus struct {
	Posts  []Post `json:"posts"`
	Total  int    `json:"total"`
	Source string `json:"source"`
}

// NextID returns the id a newly appended post should get
func (c *Corpus) NextID() int {
	next := 1
	for _, p := range c.Posts {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}
