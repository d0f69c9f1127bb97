package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/channel-agent/internal/models"
)

// ErrNoMessages is returned when an export holds no usable text message
var ErrNoMessages = errors.New("export contains no text messages")

// Export is the subset of a Telegram Desktop "result.json" we read. A
// single-chat export has Messages at the top level; a full account export
// nests chats under Chats.List.
type Export struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	ID       int64     `json:"id"`
	Messages []Message `json:"messages"`
	Chats    *struct {
		List []Export `json:"list"`
	} `json:"chats,omitempty"`
}

// Message is a single exported message
type Message struct {
	ID           int      `json:"id"`
	Type         string   `json:"type"` // message or service
	Date         string   `json:"date"`
	DateUnix     string   `json:"date_unixtime"`
	Text         RichText `json:"text"`
	TextEntities []Entity `json:"text_entities"`
}

// Entity is a run of formatted text
type Entity struct {
	Type string `json:"type"` // plain, bold, italic, link, text_link, ...
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// RichText is the "text" field, which Telegram writes either as a plain
// string or as an array mixing strings and entity objects
type RichText []Entity

// UnmarshalJSON accepts both encodings of the text field
func (r *RichText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*r = nil
		} else {
			*r = RichText{{Type: "plain", Text: s}}
		}
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("text is neither string nor array: %w", err)
	}

	out := make(RichText, 0, len(parts))
	for _, part := range parts {
		var str string
		if err := json.Unmarshal(part, &str); err == nil {
			out = append(out, Entity{Type: "plain", Text: str})
			continue
		}
		var e Entity
		if err := json.Unmarshal(part, &e); err != nil {
			return fmt.Errorf("invalid text part: %w", err)
		}
		out = append(out, e)
	}
	*r = out
	return nil
}

// LoadExport reads a Telegram export file
func LoadExport(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to decode export %s: %w", path, err)
	}
	return &exp, nil
}

// Options controls how messages become posts
type Options struct {
	Source    string // recorded in the corpus, usually the export file name
	Chat      string // chat name to pick from a full account export
	KeepLinks bool   // render text_link entities as <a href> anchors
	MinLength int    // posts shorter than this (in runes) are skipped
}

// Extract converts exported messages into a corpus. Service messages,
// empty texts and repeated ids are dropped; posts are ordered by id.
func Extract(exp *Export, opts Options) (*models.Corpus, error) {
	messages, err := exp.messagesFor(opts.Chat)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(messages))
	posts := make([]models.Post, 0, len(messages))

	for _, m := range messages {
		if m.Type != "" && m.Type != "message" {
			continue
		}
		if seen[m.ID] {
			continue
		}

		text := strings.TrimSpace(m.Render(opts.KeepLinks))
		if text == "" || len([]rune(text)) < opts.MinLength {
			continue
		}

		seen[m.ID] = true
		posts = append(posts, models.Post{
			ID:   m.ID,
			Date: m.normalizedDate(),
			Text: text,
		})
	}

	if len(posts) == 0 {
		return nil, ErrNoMessages
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })

	source := opts.Source
	if source == "" {
		source = "result.json"
	}

	return &models.Corpus{
		Posts:  posts,
		Total:  len(posts),
		Source: filepath.Base(source),
	}, nil
}

func (e *Export) messagesFor(chat string) ([]Message, error) {
	if e.Chats == nil || len(e.Chats.List) == 0 {
		return e.Messages, nil
	}
	if chat == "" {
		if len(e.Messages) > 0 {
			return e.Messages, nil
		}
		return nil, fmt.Errorf("full account export: choose a chat by name")
	}
	for _, c := range e.Chats.List {
		if strings.EqualFold(c.Name, chat) {
			return c.Messages, nil
		}
	}
	return nil, fmt.Errorf("chat %q not found in export", chat)
}

// Render flattens the message text. text_entities wins over text because
// it is always an array.
func (m Message) Render(keepLinks bool) string {
	entities := m.TextEntities
	if len(entities) == 0 {
		entities = m.Text
	}

	var b strings.Builder
	for _, e := range entities {
		if keepLinks && e.Type == "text_link" && e.Href != "" {
			fmt.Fprintf(&b, `<a href="%s">%s</a>`, e.Href, e.Text)
			continue
		}
		b.WriteString(e.Text)
	}
	return b.String()
}

func (m Message) normalizedDate() string {
	if _, err := time.Parse(models.DateLayout, m.Date); err == nil {
		return m.Date
	}
	if m.DateUnix != "" {
		if sec, err := strconv.ParseInt(m.DateUnix, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC().Format(models.DateLayout)
		}
	}
	return m.Date
}
