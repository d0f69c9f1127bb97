package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/analysis"
	"github.com/channel-agent/internal/models"
)

var testBonus = models.Bonus{
	Name: "Casinò Demo",
	Text: "50 giri gratis senza deposito",
	URL:  "https://casino.example/r?aff=123&s=tg",
}

func TestFormatBonusEmbedsTextAndURL(t *testing.T) {
	for _, f := range models.AllLinkFormats {
		t.Run(string(f), func(t *testing.T) {
			block := FormatBonus(testBonus, f, "Registrati qui")

			assert.Contains(t, block, testBonus.Text)
			assert.Contains(t, block, testBonus.URL)
			assert.Equal(t, []models.LinkFormat{f}, analysis.ClassifyText(block))
		})
	}
}

func TestFormatBonusURLWithParentheses(t *testing.T) {
	b := models.Bonus{Name: "Demo", Text: "10 giri gratis", URL: "https://casino.example/r?src=(tg)"}

	for _, f := range models.AllLinkFormats {
		t.Run(string(f), func(t *testing.T) {
			block := FormatBonus(b, f, "Gioca")
			assert.Contains(t, block, b.URL)
			assert.Equal(t, []models.LinkFormat{f}, analysis.ClassifyText(block))
		})
	}
}

func TestFormatBonusDefaultCallToAction(t *testing.T) {
	block := FormatBonus(testBonus, models.LinkFormatHTMLLink, "")
	assert.Contains(t, block, ">"+CallsToAction[0]+"</a>")
}

func TestResolveFormats(t *testing.T) {
	formats, err := resolveFormats(nil)
	require.NoError(t, err)
	assert.Equal(t, GenerationFormats, formats)

	formats, err = resolveFormats([]string{"bare_url", "emoji_url"})
	require.NoError(t, err)
	assert.Equal(t, []models.LinkFormat{models.LinkFormatBareURL, models.LinkFormatEmojiURL}, formats)

	_, err = resolveFormats([]string{"carrier_pigeon"})
	assert.Error(t, err)
}
