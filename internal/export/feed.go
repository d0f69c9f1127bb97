package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/channel-agent/internal/models"
)

// FromFeed imports posts from an RSS/Atom mirror of a channel
func FromFeed(ctx context.Context, url string, opts Options) (*models.Corpus, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}
	if opts.Source == "" {
		opts.Source = url
	}
	return FeedToCorpus(feed, opts)
}

// FeedToCorpus converts feed items, oldest first, into posts with
// sequential ids
func FeedToCorpus(feed *gofeed.Feed, opts Options) (*models.Corpus, error) {
	items := make([]*gofeed.Item, 0, len(feed.Items))
	items = append(items, feed.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return itemTime(items[i]).Before(itemTime(items[j]))
	})

	posts := make([]models.Post, 0, len(items))
	for _, item := range items {
		body := item.Content
		if body == "" {
			body = item.Description
		}
		text, err := htmlToText(body, opts.KeepLinks)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.Link, err)
		}
		if text == "" || len([]rune(text)) < opts.MinLength {
			continue
		}
		posts = append(posts, models.Post{
			ID:   len(posts) + 1,
			Date: itemTime(item).Format(models.DateLayout),
			Text: text,
		})
	}

	if len(posts) == 0 {
		return nil, ErrNoMessages
	}

	return &models.Corpus{Posts: posts, Total: len(posts), Source: opts.Source}, nil
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

// htmlToText flattens an HTML fragment, keeping line breaks and, when
// asked, anchors
func htmlToText(fragment string, keepLinks bool) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var b strings.Builder
	renderNodes(doc.Find("body").Contents(), &b, keepLinks)

	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text := strings.Join(lines, "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text), nil
}

func renderNodes(s *goquery.Selection, b *strings.Builder, keepLinks bool) {
	s.Each(func(_ int, n *goquery.Selection) {
		switch name := goquery.NodeName(n); name {
		case "#text":
			b.WriteString(n.Text())
		case "br":
			b.WriteString("\n")
		case "a":
			href, ok := n.Attr("href")
			if keepLinks && ok && href != "" {
				fmt.Fprintf(b, `<a href="%s">%s</a>`, href, strings.TrimSpace(n.Text()))
			} else {
				b.WriteString(n.Text())
			}
		case "script", "style", "img":
		default:
			renderNodes(n.Contents(), b, keepLinks)
			if name == "p" || name == "div" || name == "li" || name == "blockquote" {
				b.WriteString("\n")
			}
		}
	})
}
