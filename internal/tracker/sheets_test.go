package tracker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/pkg/logger"
)

func TestPostToRow(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	published := created.Add(time.Hour)

	post := &models.GeneratedPost{
		ID:                7,
		Content:           strings.Repeat("è", 250),
		Template:          "lista",
		LinkFormat:        models.LinkFormatEmojiURL,
		BonusName:         "Casinò Demo",
		Attempts:          2,
		Status:            models.GeneratedStatusPublished,
		TelegramMessageID: 321,
		PublishedAt:       &published,
		CreatedAt:         created,
	}

	row := postToRow(post)
	require.Len(t, row, len(SheetColumns))
	assert.Equal(t, uint(7), row[0])
	assert.Equal(t, "published", row[1])
	assert.Equal(t, "emoji_url", row[3])
	assert.Equal(t, "321", row[7])
	assert.Equal(t, "2024-05-01T10:00:00Z", row[10])
	assert.Equal(t, "2024-05-01T11:00:00Z", row[11])

	text := row[8].(string)
	assert.Equal(t, previewLength, len([]rune(text)))
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestPostToRowDraft(t *testing.T) {
	row := postToRow(&models.GeneratedPost{ID: 1, Content: "breve", Status: models.GeneratedStatusDraft})
	assert.Equal(t, "", row[7])
	assert.Equal(t, "breve", row[8])
	assert.Equal(t, "", row[11])
}

func TestRowIndex(t *testing.T) {
	values := [][]interface{}{{"ID"}, {"3"}, {}, {"12"}}
	assert.Equal(t, 2, rowIndex(values, 3))
	assert.Equal(t, 4, rowIndex(values, 12))
	assert.Equal(t, 0, rowIndex(values, 1))
}

func TestLastColumn(t *testing.T) {
	assert.Equal(t, "L", lastColumn())
}

func TestNewSheetsTrackerDisabled(t *testing.T) {
	tr, err := NewSheetsTracker(context.Background(), config.TrackerConfig{}, logger.Nop())
	assert.NoError(t, err)
	assert.Nil(t, tr)

	_, err = NewSheetsTracker(context.Background(), config.TrackerConfig{Enabled: true, SpreadsheetID: "x"}, logger.Nop())
	assert.Error(t, err)
}
