package analysis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/models"
)

func TestStats(t *testing.T) {
	c := &models.Corpus{Posts: []models.Post{
		{ID: 1, Text: "🎁 Bonus"},                                         // 7 runes
		{ID: 2, Text: `50 giri gratis <a href="https://a.com">qui</a>`},  // "50 giri gratis qui" = 18
		{ID: 3, Text: "Cashback del 10% senza deposito https://b.com/x"}, // 47
	}}

	r := Stats(c)
	assert.Equal(t, 3, r.Posts)
	assert.Equal(t, 7, r.MinLength)
	assert.Equal(t, 1, r.ShortestPostID)
	assert.Equal(t, 47, r.MaxLength)
	assert.Equal(t, 3, r.LongestPostID)
	assert.Equal(t, 18, r.MedianLength)
	assert.InDelta(t, 24.0, r.AvgLength, 0.01)
	assert.Equal(t, 2, r.WithLinks)
	assert.Equal(t, 1, r.EmojiOpenings)
	assert.Equal(t, 1, r.KeywordCounts["bonus"])
	assert.Equal(t, 1, r.KeywordCounts["giri gratis"])
	assert.Equal(t, 1, r.KeywordCounts["cashback"])
	assert.Equal(t, 1, r.KeywordCounts["senza deposito"])

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	assert.Contains(t, buf.String(), "7 / 24 / 18 / 47")
}

func TestStatsEmpty(t *testing.T) {
	r := Stats(&models.Corpus{})
	assert.Equal(t, 0, r.Posts)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
}
