package generator

import (
	"fmt"
	"strings"
)

// Template is a named prompt. User is formatted with the bonus name (%[1]s)
// and the bonus description (%[2]s).
type Template struct {
	Name string
	User string
}

// SystemPrompt sets the channel voice. %s is the channel name.
const SystemPrompt = `Sei il copywriter del canale Telegram italiano "%s", dedicato a bonus e promozioni dei casinò online con licenza ADM.

Il tuo stile:
- Italiano colloquiale e diretto, frasi brevi, paragrafi di 1-2 righe
- 2-4 emoji in tutto il post, mai più di una per riga
- Tono amichevole e informativo, mai aggressivo

Regole obbligatorie:
- NON inserire link, URL, indirizzi web o segnaposto come [LINK]: il link viene aggiunto automaticamente dopo il testo
- NON promettere vincite sicure o guadagni garantiti
- NON usare hashtag
- NON scrivere introduzioni come "Ecco il post" o commenti finali: restituisci solo il testo del post
- Gli importi si scrivono come 500€
- Lunghezza: tra 300 e 700 caratteri`

// Templates is the rotation of prompt templates
var Templates = []Template{
	{
		Name: "storia",
		User: `Scrivi un post che racconta una breve scena di vita quotidiana (la pausa caffè, la sera sul divano, il viaggio in treno) che porta in modo naturale a parlare dell'offerta di %[1]s: %[2]s.
Chiudi con un invito a scoprire l'offerta.`,
	},
	{
		Name: "domanda",
		User: `Scrivi un post che si apre con una domanda diretta al lettore sul modo in cui sceglie dove giocare, poi presenta l'offerta di %[1]s: %[2]s.
Spiega in due frasi perché l'offerta è interessante e chiudi con un invito all'azione.`,
	},
	{
		Name: "lista",
		User: `Scrivi un post con un titolo breve e poi tre punti elenco (usa un'emoji come punto elenco) che descrivono i vantaggi dell'offerta di %[1]s: %[2]s.
Termina con una riga di invito all'azione.`,
	},
	{
		Name: "novita",
		User: `Scrivi un post che annuncia come una novità della settimana l'offerta di %[1]s: %[2]s.
Il tono è quello di chi condivide una notizia utile con gli amici del canale. Niente urgenza artificiale.`,
	},
	{
		Name: "consiglio",
		User: `Scrivi un post che parte da un consiglio pratico per chi gioca online (leggere i termini del bonus, fissare un budget, controllare i requisiti di puntata) e poi presenta l'offerta di %[1]s: %[2]s come esempio di bonus chiaro.`,
	},
	{
		Name: "confronto",
		User: `Scrivi un post che confronta in modo leggero "prima" e "dopo" aver scoperto l'offerta di %[1]s: %[2]s.
Usa due brevi paragrafi che iniziano con "Prima:" e "Adesso:" e chiudi con un invito all'azione.`,
	},
}

// Fallback texts are used when every attempt fails. %[1]s is the bonus name.
var fallbackTexts = []string{
	"Oggi vi segnaliamo l'offerta di %[1]s.\n\nTutti i dettagli e i termini sono disponibili sulla pagina dell'offerta: leggeteli con attenzione prima di attivarla.",
	"Nuova promozione disponibile su %[1]s.\n\nCome sempre vi consigliamo di fissare un budget e di leggere i requisiti di puntata prima di iniziare.",
	"Segnalazione del giorno: %[1]s.\n\nL'offerta è riservata ai nuovi iscritti maggiorenni. Trovate tutto qui sotto.",
}

// BuildUserPrompt formats a template for a bonus and appends the reasons
// previous attempts were rejected
func BuildUserPrompt(t Template, bonusName, bonusText string, rejections []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(t.User, bonusName, bonusText))

	if len(rejections) > 0 {
		b.WriteString("\n\nI tentativi precedenti sono stati scartati per questi motivi, evitali:\n")
		for _, r := range rejections {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String())
}

// BuildSystemPrompt formats the system prompt for a channel
func BuildSystemPrompt(channel string) string {
	if channel == "" {
		channel = "Bonus Casinò Italia"
	}
	return fmt.Sprintf(SystemPrompt, channel)
}
