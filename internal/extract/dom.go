package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Small document helpers shared by the site tables.

// textOf returns the cleaned text of the first match.
func textOf(doc *goquery.Document, selector string) (string, bool) {
	s := doc.Find(selector).First()
	if s.Length() == 0 {
		return "", false
	}
	t := CleanText(s.Text())
	return t, t != ""
}

// attrOf returns the cleaned attribute of the first match.
func attrOf(doc *goquery.Document, selector, attr string) (string, bool) {
	v, ok := doc.Find(selector).First().Attr(attr)
	if !ok {
		return "", false
	}
	v = CleanText(v)
	return v, v != ""
}

// priceText reads the displayed amount inside an a-price element, preferring
// its offscreen copy over the first nested span.
func priceText(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	if off := s.Find("span.a-offscreen").First(); off.Length() > 0 {
		if t := CleanText(off.Text()); t != "" {
			return t, true
		}
	}
	t := CleanText(s.Find("span").First().Text())
	return t, t != ""
}

// lastTextNode returns the last non-empty direct text child of s.
func lastTextNode(s *goquery.Selection) (string, bool) {
	var last string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) != "#text" {
			return
		}
		if t := CleanText(c.Text()); t != "" {
			last = t
		}
	})
	return last, last != ""
}

// scanText calls fn with every visible text node in document order and stops
// at the first one for which fn returns true.
func scanText(doc *goquery.Document, fn func(text string) bool) {
	found := false
	doc.Find("body, body *").Not("script, style, noscript").Each(func(_ int, el *goquery.Selection) {
		if found {
			return
		}
		el.Contents().Each(func(_ int, c *goquery.Selection) {
			if found || goquery.NodeName(c) != "#text" {
				return
			}
			if t := CleanText(c.Text()); t != "" && fn(t) {
				found = true
			}
		})
	})
}

// ownTextHasPrefix reports whether the direct text of s starts with prefix.
func ownTextHasPrefix(s *goquery.Selection, prefix string) bool {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return strings.HasPrefix(CleanText(b.String()), prefix)
}
