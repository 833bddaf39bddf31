// Package extract splits raw OCR text into candidate line items.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// LineItem is one candidate item parsed from extracted text. Amount is nil
// when the line carries no parseable trailing value.
type LineItem struct {
	LineNo      int
	Description string
	Amount      *decimal.Decimal
}

type Splitter struct {
	minLetters int
}

func NewSplitter() *Splitter {
	return &Splitter{minLetters: 3}
}

// trailing amount plus optional currency marker, e.g. "5.000,00 AOA",
// "1 250,00 Kz", "5000"
var amountPattern = regexp.MustCompile(`(?i)([0-9][0-9.,\s]*?)\s*(aoa|akz|kz|kwanzas?|usd|eur|\$)?\s*$`)

// Split breaks text into line items, one per usable line. Blank lines,
// number-only fragments and lines without enough letters to describe
// anything are skipped.
func (s *Splitter) Split(text string) []LineItem {
	lines := strings.Split(text, "\n")
	out := make([]LineItem, 0, len(lines))
	lineNo := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		description := line
		var amount *decimal.Decimal
		if match := amountPattern.FindStringSubmatchIndex(line); match != nil {
			numeric := strings.TrimSpace(line[match[2]:match[3]])
			if parsed, ok := parseAmount(numeric); ok {
				amount = &parsed
				description = strings.TrimSpace(line[:match[2]])
				description = strings.TrimRight(description, " \t-–:")
			}
		}

		if letterCount(description) < s.minLetters {
			continue
		}

		lineNo++
		out = append(out, LineItem{
			LineNo:      lineNo,
			Description: description,
			Amount:      amount,
		})
	}
	return out
}

// parseAmount handles the separator styles OCR output mixes freely:
// "5.000,00" and "5 000,00" (pt-style), "5,000.00" (en-style) and bare
// "5000".
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(raw, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 5.000,00
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// 5,000.00
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if decimalSeparator(cleaned, lastComma) {
			cleaned = strings.ReplaceAll(cleaned[:lastComma], ",", "") + "." + cleaned[lastComma+1:]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastDot >= 0:
		if !decimalSeparator(cleaned, lastDot) {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// decimalSeparator reports whether the separator at idx reads as a decimal
// point (one or two trailing digits) rather than a thousands separator.
func decimalSeparator(s string, idx int) bool {
	trailing := len(s) - idx - 1
	return trailing == 1 || trailing == 2
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
