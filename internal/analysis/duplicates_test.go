package analysis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/models"
)

func TestDuplicates(t *testing.T) {
	c := &models.Corpus{Posts: []models.Post{
		{ID: 1, Text: "🎁 50 giri gratis per te! https://a.com"},
		{ID: 2, Text: "50 GIRI gratis per te   https://b.com"},
		{ID: 3, Text: "Oggi un regalo speciale per tutti voi\nbonus del 100%"},
		{ID: 4, Text: "Oggi un regalo speciale per chi si iscrive\naltro testo diverso"},
		{ID: 5, Text: "Completamente diverso da tutto il resto del canale"},
		{ID: 6, Text: "   "},
	}}

	r := Duplicates(c, 0)
	require.Len(t, r.Exact, 1)
	assert.Equal(t, []int{1, 2}, r.Exact[0].IDs)

	require.Len(t, r.Near, 1)
	assert.Equal(t, 3, r.Near[0].A)
	assert.Equal(t, 4, r.Near[0].B)
	assert.Equal(t, "opening", r.Near[0].Reason)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	assert.Contains(t, buf.String(), "[1 2]")
}

func TestDuplicatesSimilarity(t *testing.T) {
	base := "il casino regala un bonus di benvenuto enorme a tutti i nuovi iscritti questa settimana"
	c := &models.Corpus{Posts: []models.Post{
		{ID: 1, Text: "Attenzione: " + base},
		{ID: 2, Text: "Novità! " + base + " solo qui"},
	}}

	r := Duplicates(c, 0.5)
	require.Len(t, r.Near, 1)
	assert.Equal(t, "similarity", r.Near[0].Reason)
	assert.Greater(t, r.Near[0].Similarity, 0.5)
}
