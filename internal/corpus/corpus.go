// Package corpus reads and writes the flat post file shared by the
// extractor, the analysis reports and the generator.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/channel-agent/internal/models"
)

// Load reads a corpus file
func Load(path string) (*models.Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var c models.Corpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", path, err)
	}
	if c.Posts == nil {
		c.Posts = []models.Post{}
	}

	return &c, nil
}

// LoadOrEmpty reads a corpus file, returning an empty corpus when the file
// does not exist yet
func LoadOrEmpty(path, source string) (*models.Corpus, error) {
	c, err := Load(path)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &models.Corpus{Posts: []models.Post{}, Source: source}, nil
	}
	return nil, err
}

// Save writes a corpus file as indented UTF-8 JSON. Total is recomputed.
func Save(path string, c *models.Corpus) error {
	if c.Posts == nil {
		c.Posts = []models.Post{}
	}
	c.Total = len(c.Posts)

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}

	// Write to a sibling file first so a crash never leaves half a corpus
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace corpus: %w", err)
	}

	return nil
}

// Append adds a post to the corpus file and returns it. The file is created
// when missing.
func Append(path, text string, at time.Time) (*models.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("refusing to append an empty post")
	}

	c, err := LoadOrEmpty(path, "generated")
	if err != nil {
		return nil, err
	}

	post := models.Post{
		ID:   c.NextID(),
		Date: at.Format(models.DateLayout),
		Text: text,
	}
	c.Posts = append(c.Posts, post)

	if err := Save(path, c); err != nil {
		return nil, err
	}
	return &post, nil
}
