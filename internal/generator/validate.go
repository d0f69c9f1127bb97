package generator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/textutil"
)

// ErrValidation is wrapped by every rejection of a generated post
var ErrValidation = errors.New("validation failed")

// DefaultForbiddenPhrases are always filtered, config adds to them
var DefaultForbiddenPhrases = []string{
	"vincita garantita",
	"vincite garantite",
	"guadagno garantito",
	"guadagni garantiti",
	"soldi facili",
	"senza rischi",
	"zero rischi",
	"vinci sicuro",
	"diventa ricco",
	"come modello linguistico",
	"come intelligenza artificiale",
	"as an ai",
	"language model",
}

// openingWords is how many words make an opening signature
const openingWords = 5

var (
	fencePattern        = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	preamblePattern     = regexp.MustCompile(`(?i)^(?:(?:certo|ok|sure|perfetto)[!.,]?\s*)?(?:ecco|di seguito|here is|here's)\s+(?:(?:qui|il|lo|la|un|una|tuo|nuovo|the|a|your|new)\s+)*(?:post|testo|messaggio|bozza)\b[^\n]*$|^(?i:certo|ok|sure|perfetto)[!.,]?$`)
	chatterPattern      = regexp.MustCompile(`(?i)^(?:spero\b|fammi sapere|se vuoi|let me know|hope (?:this|you)\b)`)
	emphasisPattern     = regexp.MustCompile(`\*\*|__|^#+\s*`)
	hashtagPattern      = regexp.MustCompile(`(?:^|\s)#[\p{L}\p{N}_]+`)
	anchorTextPattern   = regexp.MustCompile(`(?is)<a\s+[^>]*>(.*?)</a>`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	placeholderPattern  = regexp.MustCompile(`(?i)\[(?:link|url|qui|inserisci)[^\]]*\]|\{\{?\s*(?:link|url)\s*\}?\}|\((?:link|url)\)|<(?:link|url)>|\b(?:link_here|url_here|insert_link|inserisci_link)\b`)
	malformedURLPattern = regexp.MustCompile(`(?i)\b(?:hxxps?|https?)\s*:\s*/+\s*\S*|\bhttps?:/\S*`)
	blankLinesPattern   = regexp.MustCompile(`\n{3,}`)
	sentenceEndPattern  = regexp.MustCompile(`[.!?…]+["»”]?\s+`)
)

// Validator cleans, repairs and checks generated posts
type Validator struct {
	minLength  int
	maxLength  int
	similarity float64
	forbidden  []string
}

// NewValidator creates a validator from generator settings
func NewValidator(cfg config.GeneratorConfig) *Validator {
	forbidden := make([]string, 0, len(DefaultForbiddenPhrases)+len(cfg.ForbiddenPhrases))
	for _, p := range append(append([]string{}, DefaultForbiddenPhrases...), cfg.ForbiddenPhrases...) {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			forbidden = append(forbidden, p)
		}
	}

	return &Validator{
		minLength:  cfg.MinLength,
		maxLength:  cfg.MaxLength,
		similarity: cfg.SimilarityThreshold,
		forbidden:  forbidden,
	}
}

// Process turns a raw completion into a publishable post: the cleaned body
// followed by the bonus block. history holds recent posts, newest first.
func (v *Validator) Process(raw, block string, history []string) (string, error) {
	body := cleanOutput(raw)
	body = v.dropForbidden(body)
	body = repairLinks(body)
	body = FormatCurrency(body)
	body = tidy(body)

	if body == "" {
		return "", rejectf("il testo è vuoto dopo la pulizia")
	}

	text, err := v.fitLength(body, block)
	if err != nil {
		return "", err
	}

	if err := v.checkDuplicate(text, history); err != nil {
		return "", err
	}

	return text, nil
}

// Reason returns the human readable part of a validation error
func Reason(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}

func rejectf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// cleanOutput strips code fences, markdown emphasis, hashtags and the
// chatter models put around the post
func cleanOutput(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = fencePattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	lines := strings.Split(s, "\n")
	for len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if first != "" && !preamblePattern.MatchString(first) {
			break
		}
		lines = lines[1:]
	}
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last != "" && !chatterPattern.MatchString(last) {
			break
		}
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		line = emphasisPattern.ReplaceAllString(line, "")
		line = hashtagPattern.ReplaceAllString(line, "")
		lines[i] = strings.TrimRight(line, " \t")
	}

	s = strings.TrimSpace(strings.Join(lines, "\n"))
	return trimQuotes(s)
}

func trimQuotes(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"«", "»"}, {"“", "”"}}
	for _, p := range pairs {
		if len(s) > len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			inner := s[len(p[0]) : len(s)-len(p[1])]
			if !strings.Contains(inner, p[0]) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

// dropForbidden removes every line containing a forbidden phrase
func (v *Validator) dropForbidden(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(line)
		forbidden := false
		for _, p := range v.forbidden {
			if strings.Contains(lower, p) {
				forbidden = true
				break
			}
		}
		if !forbidden {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// repairLinks removes every link the model wrote: anchors and markdown
// links keep their text, URLs, malformed URLs and placeholders go. The
// bonus block is the only place the tracking URL appears.
func repairLinks(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		fixed := anchorTextPattern.ReplaceAllString(line, "$1")
		fixed = markdownLinkPattern.ReplaceAllString(fixed, "$1")
		fixed = placeholderPattern.ReplaceAllString(fixed, "")
		fixed = textutil.URLPattern.ReplaceAllString(fixed, "")
		fixed = malformedURLPattern.ReplaceAllString(fixed, "")
		fixed = textutil.StripTags(fixed)

		if fixed == line {
			kept = append(kept, line)
			continue
		}

		// "Registrati qui 👉" without its link is left with nothing to point at
		fixed = strings.TrimRightFunc(fixed, func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune(":→-–—>»", r) || textutil.IsEmoji(r)
		})
		if hasWordContent(fixed) {
			kept = append(kept, fixed)
		}
	}
	return strings.Join(kept, "\n")
}

func hasWordContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// tidy collapses runs of blank lines and inner spaces left by removals
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLinesPattern.ReplaceAllString(s, "\n\n"))
}

func visibleLength(s string) int {
	return utf8.RuneCountInString(textutil.StripTags(s))
}

func assemble(body, block string) string {
	return body + "\n\n" + block
}

// fitLength checks the assembled post against the bounds. Long posts are
// cut after the last paragraph, then the last sentence, that fits.
func (v *Validator) fitLength(body, block string) (string, error) {
	text := assemble(body, block)
	n := visibleLength(text)

	if n < v.minLength {
		return "", rejectf("testo troppo corto (%d caratteri, minimo %d)", n, v.minLength)
	}
	if v.maxLength <= 0 || n <= v.maxLength {
		return text, nil
	}

	budget := v.maxLength - visibleLength(block) - 2
	cut := cutToBudget(body, budget)
	if cut == "" {
		return "", rejectf("testo troppo lungo (%d caratteri, massimo %d)", n, v.maxLength)
	}

	text = assemble(cut, block)
	if n := visibleLength(text); n < v.minLength {
		return "", rejectf("testo troppo lungo (%d caratteri, massimo %d) e troppo corto dopo il taglio", n, v.maxLength)
	}
	return text, nil
}

// cutToBudget returns the longest prefix of whole paragraphs, extended by
// whole sentences of the next paragraph, within budget runes
func cutToBudget(body string, budget int) string {
	if budget <= 0 {
		return ""
	}

	paragraphs := strings.Split(body, "\n\n")
	var kept []string
	used := 0

	for _, p := range paragraphs {
		cost := utf8.RuneCountInString(p)
		if len(kept) > 0 {
			cost += 2
		}
		if used+cost <= budget {
			kept = append(kept, p)
			used += cost
			continue
		}

		if len(kept) > 0 {
			used += 2
		}
		if partial := sentencesWithin(p, budget-used); partial != "" {
			kept = append(kept, partial)
		}
		break
	}

	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

func sentencesWithin(p string, budget int) string {
	if budget <= 0 {
		return ""
	}

	end := 0
	for _, loc := range sentenceEndPattern.FindAllStringIndex(p, -1) {
		candidate := strings.TrimSpace(p[:loc[1]])
		if utf8.RuneCountInString(candidate) > budget {
			break
		}
		end = loc[1]
	}
	return strings.TrimSpace(p[:end])
}

// checkDuplicate rejects posts that open like, or read like, a recent one
func (v *Validator) checkDuplicate(text string, history []string) error {
	opening := textutil.OpeningSignature(text, openingWords)
	checkOpening := len(strings.Fields(opening)) >= 3

	for i, old := range history {
		if checkOpening && textutil.OpeningSignature(old, openingWords) == opening {
			return rejectf("l'apertura %q è già stata usata in un post recente, inizia in modo diverso", opening)
		}
		if v.similarity > 0 {
			if sim := textutil.Similarity(text, old); sim >= v.similarity {
				return rejectf("troppo simile a un post recente (n. %d, somiglianza %.2f), cambia struttura e parole", i+1, sim)
			}
		}
	}
	return nil
}
