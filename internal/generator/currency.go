package generator

import (
	"regexp"
	"strings"
)

const amountExpr = `\d(?:[\d.,]*\d)?`

var (
	// 500 €, 500€, 500 euro, 500 EUR
	amountBeforeSign = regexp.MustCompile(`(` + amountExpr + `)\s*(?:€|(?i:euro|eur)\b)`)
	// € 500, €500, Eur 50. "Euro 2024" is left alone.
	amountAfterSign = regexp.MustCompile(`(^|[^\p{L}\p{N}.,])(?:€|(?i:eur))\s*(` + amountExpr + `)`)
)

// FormatCurrency rewrites euro amounts as 500€, with "." between
// thousands, "," before decimals and zero decimals dropped. A sign
// followed by an amount is read as a prefix first, so the number before
// "2024 € 50" is not taken for the amount.
func FormatCurrency(s string) string {
	s = amountAfterSign.ReplaceAllStringFunc(s, func(m string) string {
		sub := amountAfterSign.FindStringSubmatch(m)
		return sub[1] + formatAmount(sub[2]) + "€"
	})
	return amountBeforeSign.ReplaceAllStringFunc(s, func(m string) string {
		sub := amountBeforeSign.FindStringSubmatch(m)
		return formatAmount(sub[1]) + "€"
	})
}

// formatAmount normalises 1000, 1,000, 1.000,00 and 10.50 into Italian
// notation. A separator followed by one or two final digits is the decimal
// mark, every other separator groups thousands.
func formatAmount(raw string) string {
	intPart, decPart := raw, ""

	if i := strings.LastIndexAny(raw, ".,"); i >= 0 {
		if tail := raw[i+1:]; len(tail) <= 2 {
			intPart, decPart = raw[:i], tail
		}
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, intPart)
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	if strings.Trim(decPart, "0") != "" {
		b.WriteByte(',')
		b.WriteString(decPart)
	}
	return b.String()
}
