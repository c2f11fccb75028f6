package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	leadingFloatRe = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)`)
	leadingCountRe = regexp.MustCompile(`^\s*\(?\s*([0-9][0-9,]*)`)
	rankTokenRe    = regexp.MustCompile(`#\s*([0-9][0-9,]*)`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// invisibleMarks are direction marks Amazon sprinkles through detail lists.
var invisibleMarks = strings.NewReplacer(
	"\u200e", "",
	"\u200f", "",
	"\u200b", "",
	"\ufeff", "",
	"\u00a0", " ",
)

// CleanText strips invisible marks, collapses whitespace, and trims.
func CleanText(s string) string {
	s = invisibleMarks.Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// CleanLabel reduces a row label to letters and single spaces, so
// "Manufacturer\n‏:\n‎" becomes "Manufacturer".
func CleanLabel(s string) string {
	var b strings.Builder
	for _, r := range invisibleMarks.Replace(s) {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return CleanText(b.String())
}

// LeadingFloat parses the number at the start of s, as in "4.5 out of 5 stars".
func LeadingFloat(s string) (float64, bool) {
	m := leadingFloatRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseCount parses the leading integer of s with thousands separators
// removed, as in "1,234 ratings".
func ParseCount(s string) (int, bool) {
	m := leadingCountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseRank reads "#1,234 in Category" style text. When category is set the
// text must mention it. The rank must be positive.
func ParseRank(text, category string) (int, bool) {
	if category != "" && !strings.Contains(text, category) {
		return 0, false
	}
	m := rankTokenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SplitUnitPrice splits "($0.12 / Count)" into its amount and unit. Amounts
// that the page rendered twice ("$0.12$0.12") are collapsed.
func SplitUnitPrice(s string) (amount, unit string, ok bool) {
	s = strings.NewReplacer("(", "", ")", "").Replace(CleanText(s))
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	amount = collapseRepeat(strings.Join(strings.Fields(parts[0]), ""))
	unit = CleanText(parts[1])
	if amount == "" || unit == "" {
		return "", "", false
	}
	return amount, unit, true
}

// UnitFromTrailer reads the unit out of the text that trails a unit price
// element, e.g. " / Count)" or "/ Fl Oz)". Everything after the last slash is
// the unit, matching SplitUnitPrice.
func UnitFromTrailer(s string) (string, bool) {
	s = strings.NewReplacer("(", "", ")", "").Replace(CleanText(s))
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Join(strings.Fields(s), " ")
	return s, s != ""
}

// collapseRepeat returns the first half of s when s is the same string
// written twice.
func collapseRepeat(s string) string {
	if n := len(s); n > 0 && n%2 == 0 && s[:n/2] == s[n/2:] {
		return s[:n/2]
	}
	return s
}
