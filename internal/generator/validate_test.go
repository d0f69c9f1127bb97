package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/models"
)

const goodPost = `Hai mai pensato a quanto conta scegliere bene dove giocare?

Questa settimana c'è un'offerta che vale la pena guardare con calma: condizioni chiare e requisiti leggibili.

Leggi i termini e decidi tu se fa per te.`

const otherPost = `Prima: promozioni confuse e regole scritte in piccolo.

Adesso: un'offerta semplice da capire, con tutte le condizioni spiegate bene prima di iniziare.

Dai un'occhiata e valuta con calma.`

func testGeneratorConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		MaxAttempts:         3,
		RetryDelay:          2 * time.Second,
		MinLength:           100,
		MaxLength:           600,
		HistorySize:         10,
		RecentTemplates:     2,
		RecentFormats:       1,
		RecentBonuses:       1,
		SimilarityThreshold: 0.5,
		ForbiddenPhrases:    []string{"Bonus Imperdibile"},
		FallbackEnabled:     true,
		ChannelName:         "Bonus Test",
	}
}

func testBlock() string {
	return FormatBonus(testBonus, models.LinkFormatHTMLLink, "Attiva il bonus")
}

func TestValidatorCleansModelChatter(t *testing.T) {
	v := NewValidator(testGeneratorConfig())
	raw := "Ecco il post:\n```\n**Titolo** della settimana #bonus\n" + goodPost + "\n```\nSpero ti piaccia!"

	text, err := v.Process(raw, testBlock(), nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Titolo della settimana\n"))
	assert.True(t, strings.HasSuffix(text, testBlock()))
	for _, s := range []string{"Ecco il post", "```", "**", "#bonus", "Spero"} {
		assert.NotContains(t, text, s)
	}
}

func TestValidatorKeepsTitleAndDisclaimer(t *testing.T) {
	v := NewValidator(testGeneratorConfig())
	title := "Ecco perché questa offerta convince:"
	disclaimer := "Nota: il gioco è vietato ai minori e può causare dipendenza."

	tests := []struct {
		name string
		raw  string
	}{
		{"plain", title + "\n" + goodPost + "\n" + disclaimer},
		{"with chatter", "Certo! Ecco il post per il canale:\n" + title + "\n" + goodPost + "\n" + disclaimer + "\nSpero ti piaccia!"},
		{"english preamble", "Here is the post:\n" + title + "\n" + goodPost + "\n" + disclaimer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := v.Process(tt.raw, testBlock(), nil)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(text, title+"\n"))
			assert.Contains(t, text, disclaimer)
			assert.NotContains(t, text, "Ecco il post")
			assert.NotContains(t, text, "Here is")
			assert.NotContains(t, text, "Spero")
		})
	}
}

func TestValidatorTrimsWrappingQuotes(t *testing.T) {
	v := NewValidator(testGeneratorConfig())

	text, err := v.Process("«"+goodPost+"»", testBlock(), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Hai mai pensato"))
}

func TestValidatorDropsForbiddenLines(t *testing.T) {
	v := NewValidator(testGeneratorConfig())
	raw := goodPost + "\nVincita garantita per tutti!\nUn bonus imperdibile, davvero."

	text, err := v.Process(raw, testBlock(), nil)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(text), "garantita")
	assert.NotContains(t, strings.ToLower(text), "imperdibile")
}

func TestValidatorRepairsLinks(t *testing.T) {
	v := NewValidator(testGeneratorConfig())
	raw := goodPost + "\nRegistrati qui 👉 [LINK]\nOppure vai su https://altro-sito.example/x\n" +
		`https:// rotto.com e <a href="https://evil.example">clicca</a>` + "\n{link}\nLINK_HERE"

	text, err := v.Process(raw, testBlock(), nil)
	require.NoError(t, err)

	for _, s := range []string{"[LINK]", "{link}", "LINK_HERE", "altro-sito", "evil.example", "rotto", "👉 \n"} {
		assert.NotContains(t, text, s)
	}
	assert.Contains(t, text, "Registrati qui\n")
	assert.Contains(t, text, "Oppure vai su\n")
	assert.Contains(t, text, "e clicca")
	assert.Equal(t, 1, strings.Count(text, testBonus.URL))
}

func TestValidatorFormatsCurrency(t *testing.T) {
	v := NewValidator(testGeneratorConfig())
	raw := goodPost + "\nFino a € 500 di bonus e 1000 euro di cashback."

	text, err := v.Process(raw, testBlock(), nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Fino a 500€ di bonus e 1.000€ di cashback.")
}

func TestValidatorLengthBounds(t *testing.T) {
	v := NewValidator(testGeneratorConfig())

	t.Run("too short", func(t *testing.T) {
		_, err := v.Process("Ciao a tutti!", testBlock(), nil)
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, Reason(err), "troppo corto")
	})

	t.Run("empty after cleaning", func(t *testing.T) {
		_, err := v.Process("Ecco il post:\n```\n```", testBlock(), nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("too long is cut at a paragraph", func(t *testing.T) {
		paragraph := "Questa è una frase di prova che serve a riempire il paragrafo. Ne aggiungo una seconda per sicurezza."
		raw := strings.TrimSuffix(strings.Repeat(paragraph+"\n\n", 8), "\n\n")

		text, err := v.Process(raw, testBlock(), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, visibleLength(text), 600)
		assert.GreaterOrEqual(t, visibleLength(text), 100)
		assert.True(t, strings.HasPrefix(text, paragraph))
		assert.True(t, strings.HasSuffix(text, testBlock()))
	})

	t.Run("too long without boundaries fails", func(t *testing.T) {
		_, err := v.Process(strings.Repeat("parola ", 200), testBlock(), nil)
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, Reason(err), "troppo lungo")
	})
}

func TestValidatorRejectsDuplicates(t *testing.T) {
	v := NewValidator(testGeneratorConfig())

	first, err := v.Process(goodPost, testBlock(), nil)
	require.NoError(t, err)

	t.Run("same opening", func(t *testing.T) {
		raw := "Hai mai pensato a quanto sia bello il weekend?\n\n" + otherPost
		_, err := v.Process(raw, testBlock(), []string{first})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, Reason(err), "apertura")
	})

	t.Run("similar body", func(t *testing.T) {
		raw := strings.Replace(goodPost, "Hai mai pensato a quanto conta", "Ti sei mai chiesto quanto conti", 1)
		_, err := v.Process(raw, testBlock(), []string{first})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, Reason(err), "simile")
	})

	t.Run("different post passes", func(t *testing.T) {
		_, err := v.Process(otherPost, testBlock(), []string{first})
		assert.NoError(t, err)
	})
}
