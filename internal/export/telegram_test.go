package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "name": "Bonus Italia",
  "type": "public_channel",
  "id": 1234,
  "messages": [
    {"id": 3, "type": "message", "date": "2024-01-03T09:00:00", "text": "terzo post"},
    {"id": 1, "type": "service", "date": "2024-01-01T08:00:00", "action": "create_channel", "text": ""},
    {
      "id": 2, "type": "message", "date": "2024-01-02T20:15:00",
      "text": ["🎁 50 giri gratis ", {"type": "text_link", "text": "qui", "href": "https://example.com/go?x=1"}],
      "text_entities": [
        {"type": "plain", "text": "🎁 50 giri gratis "},
        {"type": "text_link", "text": "qui", "href": "https://example.com/go?x=1"}
      ]
    },
    {"id": 4, "type": "message", "date": "2024-01-04T10:00:00", "text": ""},
    {"id": 3, "type": "message", "date": "2024-01-03T09:00:00", "text": "terzo post duplicato"},
    {"id": 5, "type": "message", "date": "bad", "date_unixtime": "1704362400", "text": ["solo ", {"type": "bold", "text": "grassetto"}]}
  ]
}`

func TestRichTextDecodesBothEncodings(t *testing.T) {
	var plain RichText
	require.NoError(t, json.Unmarshal([]byte(`"ciao"`), &plain))
	assert.Equal(t, RichText{{Type: "plain", Text: "ciao"}}, plain)

	var mixed RichText
	require.NoError(t, json.Unmarshal([]byte(`["a", {"type":"bold","text":"b"}]`), &mixed))
	assert.Equal(t, RichText{{Type: "plain", Text: "a"}, {Type: "bold", Text: "b"}}, mixed)

	var bad RichText
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0644))

	exp, err := LoadExport(path)
	require.NoError(t, err)

	c, err := Extract(exp, Options{Source: path, KeepLinks: true})
	require.NoError(t, err)

	require.Len(t, c.Posts, 3)
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, "result.json", c.Source)

	assert.Equal(t, 2, c.Posts[0].ID)
	assert.Equal(t, `🎁 50 giri gratis <a href="https://example.com/go?x=1">qui</a>`, c.Posts[0].Text)
	assert.Equal(t, "2024-01-02T20:15:00", c.Posts[0].Date)

	assert.Equal(t, 3, c.Posts[1].ID)
	assert.Equal(t, "terzo post", c.Posts[1].Text, "first occurrence of an id wins")

	assert.Equal(t, "solo grassetto", c.Posts[2].Text)
	assert.Equal(t, "2024-01-04T10:00:00", c.Posts[2].Date, "falls back to unix time")
}

func TestExtractWithoutLinks(t *testing.T) {
	var exp Export
	require.NoError(t, json.Unmarshal([]byte(sampleExport), &exp))

	c, err := Extract(&exp, Options{})
	require.NoError(t, err)
	assert.Equal(t, "🎁 50 giri gratis qui", c.Posts[0].Text)
}

func TestExtractNoMessages(t *testing.T) {
	exp := &Export{Messages: []Message{{ID: 1, Type: "service"}}}
	_, err := Extract(exp, Options{})
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestExtractFullAccountExport(t *testing.T) {
	raw := `{"chats": {"list": [
		{"name": "Altro", "messages": [{"id": 1, "type": "message", "date": "2024-01-01T00:00:00", "text": "no"}]},
		{"name": "Bonus Italia", "messages": [{"id": 7, "type": "message", "date": "2024-01-01T00:00:00", "text": "si"}]}
	]}}`
	var exp Export
	require.NoError(t, json.Unmarshal([]byte(raw), &exp))

	c, err := Extract(&exp, Options{Chat: "bonus italia"})
	require.NoError(t, err)
	require.Len(t, c.Posts, 1)
	assert.Equal(t, 7, c.Posts[0].ID)

	_, err = Extract(&exp, Options{})
	assert.Error(t, err)

	_, err = Extract(&exp, Options{Chat: "missing"})
	assert.Error(t, err)
}

func TestLoadExportMissingFile(t *testing.T) {
	_, err := LoadExport(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
