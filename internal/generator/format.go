package generator

import (
	"fmt"

	"github.com/channel-agent/internal/models"
)

// GenerationFormats are the link formats the generator rotates through.
// Markdown links are only recognised in the corpus: the channel publishes
// in HTML mode where they would show up raw.
var GenerationFormats = []models.LinkFormat{
	models.LinkFormatHTMLLink,
	models.LinkFormatEmojiURL,
	models.LinkFormatTextArrowURL,
	models.LinkFormatURLDashText,
	models.LinkFormatTextDashURL,
	models.LinkFormatBareURL,
}

// CallsToAction label the anchor of html_link blocks
var CallsToAction = []string{
	"Attiva il bonus",
	"Registrati qui",
	"Scopri l'offerta",
	"Vai all'offerta",
}

// FormatBonus renders the bonus block in the given link format. The bonus
// text and URL are embedded exactly as configured.
func FormatBonus(b models.Bonus, format models.LinkFormat, cta string) string {
	if cta == "" {
		cta = CallsToAction[0]
	}

	switch format {
	case models.LinkFormatHTMLLink:
		return fmt.Sprintf("🎁 %s\n👉 <a href=\"%s\">%s</a>", b.Text, b.URL, cta)
	case models.LinkFormatMarkdownLink:
		return fmt.Sprintf("🎁 %s\n👉 [%s](%s)", b.Text, cta, b.URL)
	case models.LinkFormatEmojiURL:
		return fmt.Sprintf("🎁 %s\n👉 %s", b.Text, b.URL)
	case models.LinkFormatTextArrowURL:
		return fmt.Sprintf("%s → %s", b.Text, b.URL)
	case models.LinkFormatURLDashText:
		return fmt.Sprintf("%s - %s", b.URL, b.Text)
	case models.LinkFormatTextDashURL:
		return fmt.Sprintf("%s - %s", b.Text, b.URL)
	default:
		return fmt.Sprintf("%s\n%s", b.Text, b.URL)
	}
}

// resolveFormats maps configured format names, keeping only the ones the
// generator can render. Unknown names are reported.
func resolveFormats(names []string) ([]models.LinkFormat, error) {
	if len(names) == 0 {
		return GenerationFormats, nil
	}

	var formats []models.LinkFormat
	for _, name := range names {
		f, ok := models.ParseLinkFormat(name)
		if !ok || f == models.LinkFormatNone {
			return nil, fmt.Errorf("unknown link format %q", name)
		}
		formats = append(formats, f)
	}
	return formats, nil
}
