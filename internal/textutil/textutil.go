// Package textutil holds the text helpers shared by the corpus reports and
// the generator: URL matching, normalisation and similarity.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// URLExpr matches http(s) and www URLs up to whitespace, quotes or a
// bracket. Balanced parentheses stay part of the URL, so "?a=(1)" survives
// while "(see https://x.com)" loses the closing one.
const URLExpr = `(?:https?://|www\.)(?:[^\s<>"'()\[\]]|\([^\s<>"'()\[\]]*\))+`

// URLPattern is URLExpr compiled
var URLPattern = regexp.MustCompile(URLExpr)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripTags removes HTML tags, keeping anchor text
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// URLs returns every URL in s, anchors included, with trailing sentence
// punctuation trimmed
func URLs(s string) []string {
	var out []string
	for _, u := range URLPattern.FindAllString(s, -1) {
		out = append(out, TrimURLPunctuation(u))
	}
	return out
}

// TrimURLPunctuation drops punctuation that ends a sentence rather than
// the URL
func TrimURLPunctuation(u string) string {
	return strings.TrimRight(u, ".,;:!?»")
}

// Normalize lowercases s, removes tags and URLs and collapses whitespace.
// Used to compare posts regardless of links and formatting.
func Normalize(s string) string {
	s = StripTags(s)
	s = URLPattern.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Words splits normalized text into words
func Words(s string) []string {
	return strings.Fields(Normalize(s))
}

// OpeningSignature returns the first n normalized words of the first
// non-empty line. Posts sharing it open the same way.
func OpeningSignature(s string, n int) string {
	for _, line := range strings.Split(s, "\n") {
		words := Words(line)
		if len(words) == 0 {
			continue
		}
		if len(words) > n {
			words = words[:n]
		}
		return strings.Join(words, " ")
	}
	return ""
}

// Shingles returns the set of k-word shingles of s
func Shingles(s string, k int) map[string]struct{} {
	words := Words(s)
	set := make(map[string]struct{})
	if len(words) < k {
		if len(words) > 0 {
			set[strings.Join(words, " ")] = struct{}{}
		}
		return set
	}
	for i := 0; i+k <= len(words); i++ {
		set[strings.Join(words[i:i+k], " ")] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, 0 for two empty sets
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Similarity is the 3-word shingle Jaccard of two texts
func Similarity(a, b string) float64 {
	return Jaccard(Shingles(a, 3), Shingles(b, 3))
}

// StartsWithEmoji reports whether the first visible rune is a pictograph
func StartsWithEmoji(s string) bool {
	for _, r := range strings.TrimSpace(s) {
		return IsEmoji(r)
	}
	return false
}

// IsEmoji reports whether r is a pictographic symbol
func IsEmoji(r rune) bool {
	return unicode.Is(unicode.So, r) || (r >= 0x1F000 && r <= 0x1FAFF)
}
