package record

import (
	"regexp"
	"strings"
	"unicode"
)

// qualifierRe matches a leading clause ending in a colon, such as
// "Other Ingredients:", either at the start or right after a separator.
var qualifierRe = regexp.MustCompile(`(^|[.;,-])[^.;,-]*:`)

// OtherIngredients splits an ingredients statement into fragments and drops
// every fragment that mentions the main ingredient. Separators inside
// parentheses do not split.
func OtherIngredients(text, mainIngredient string) []string {
	text = qualifierRe.ReplaceAllString(text, "$1")
	main := strings.ToLower(strings.TrimSpace(mainIngredient))

	var out []string
	for _, frag := range splitOutsideParens(text) {
		if main != "" && strings.Contains(strings.ToLower(frag), main) {
			continue
		}
		out = append(out, frag)
	}
	return out
}

// splitOutsideParens splits on , ; . and - at paren depth zero. A period
// between digits ("2.5 mg") and a hyphen inside a word ("L-Theanine") are
// kept. Fragments are trimmed and empty ones dropped.
func splitOutsideParens(s string) []string {
	runes := []rune(s)
	var (
		parts []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			parts = append(parts, t)
		}
		cur.Reset()
	}

	for i, r := range runes {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',', ';':
			if depth == 0 {
				flush()
				continue
			}
		case '.':
			if depth == 0 && !between(runes, i, unicode.IsDigit) {
				flush()
				continue
			}
		case '-':
			if depth == 0 && !between(runes, i, isWordRune) {
				flush()
				continue
			}
		}
		cur.WriteRune(r)
	}
	flush()
	return parts
}

// between reports whether the runes on both sides of i satisfy fn.
func between(runes []rune, i int, fn func(rune) bool) bool {
	return i > 0 && i < len(runes)-1 && fn(runes[i-1]) && fn(runes[i+1])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
