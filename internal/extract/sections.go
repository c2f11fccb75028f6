package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Canonical keys shared by the section readers and the record builder.
const (
	KeyBrand          = "brand"
	KeyManufacturer   = "manufacturer"
	KeyASIN           = "asin"
	KeyFormFactor     = "formFactor"
	KeyUses           = "uses"
	KeyFirstAvailable = "firstAvailable"
	KeyRank           = "rank"
	KeyOrigin         = "origin"
	KeyIngredients    = "ingredients"
)

// Labels maps a cleaned, lower-cased row label to its canonical key.
type Labels map[string]string

// Canonical returns the key for a raw label, if the label is known.
func (l Labels) Canonical(raw string) (string, bool) {
	k, ok := l[strings.ToLower(CleanLabel(raw))]
	return k, ok
}

// AmazonLabels covers the overview table, detail bullets, and the
// important information panel.
var AmazonLabels = Labels{
	"item form":                    KeyFormFactor,
	"product form":                 KeyFormFactor,
	"brand":                        KeyBrand,
	"brand name":                   KeyBrand,
	"recommended uses for product": KeyUses,
	"date first available":         KeyFirstAvailable,
	"manufacturer":                 KeyManufacturer,
	"asin":                         KeyASIN,
	"best sellers rank":            KeyRank,
	"country of origin":            KeyOrigin,
	"ingredients":                  KeyIngredients,
}

// SectionReader reads one labelled section of a page into canonical keys.
// Within a section the first occurrence of a key wins.
type SectionReader func(doc *goquery.Document) map[string]string

// put stores v under the canonical key for label unless the key is taken.
func put(out map[string]string, labels Labels, label, v string) {
	key, ok := labels.Canonical(label)
	if !ok {
		return
	}
	v = CleanText(v)
	if v == "" {
		return
	}
	if _, taken := out[key]; taken {
		return
	}
	out[key] = v
}

// OverviewReader reads two-cell rows of a structured overview table.
func OverviewReader(selector string, labels Labels) SectionReader {
	return func(doc *goquery.Document) map[string]string {
		out := make(map[string]string)
		doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td")
			if cells.Length() != 2 {
				return
			}
			label := strings.ReplaceAll(cells.Eq(0).Text(), ":", "")
			put(out, labels, label, cells.Eq(1).Text())
		})
		return out
	}
}

// BulletReader reads free-text detail bullets whose label and value are the
// first two spans of each list item.
func BulletReader(selector string, labels Labels) SectionReader {
	return func(doc *goquery.Document) map[string]string {
		out := make(map[string]string)
		doc.Find(selector).Each(func(_ int, li *goquery.Selection) {
			spans := li.Find("span > span")
			if spans.Length() < 2 {
				return
			}
			put(out, labels, spans.Eq(0).Text(), spans.Eq(1).Text())
		})
		return out
	}
}

// HeaderTableReader reads rows with a th label and a td value.
func HeaderTableReader(selector string, labels Labels) SectionReader {
	return func(doc *goquery.Document) map[string]string {
		out := make(map[string]string)
		doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			th := row.ChildrenFiltered("th")
			td := row.ChildrenFiltered("td")
			if th.Length() == 0 || td.Length() == 0 {
				return
			}
			put(out, labels, th.First().Text(), td.First().Text())
		})
		return out
	}
}

// PanelReader reads headed panels: an h4 label followed by paragraph text.
// The value is the last non-empty paragraph in the heading's container.
func PanelReader(selector string, labels Labels) SectionReader {
	return func(doc *goquery.Document) map[string]string {
		out := make(map[string]string)
		doc.Find(selector).Find("h4").Each(func(_ int, h *goquery.Selection) {
			put(out, labels, h.Text(), lastParagraph(h.Parent()))
		})
		return out
	}
}

// ColonListReader reads "Label: value" list items.
func ColonListReader(selector string, labels Labels) SectionReader {
	return func(doc *goquery.Document) map[string]string {
		out := make(map[string]string)
		doc.Find(selector).Each(func(_ int, li *goquery.Selection) {
			label, value, ok := strings.Cut(CleanText(li.Text()), ":")
			if !ok {
				return
			}
			put(out, labels, label, value)
		})
		return out
	}
}

// MergeReaders runs readers in order; earlier readers win on shared keys.
func MergeReaders(readers ...SectionReader) SectionReader {
	return func(doc *goquery.Document) map[string]string {
		out := make(map[string]string)
		for _, r := range readers {
			for k, v := range r(doc) {
				if _, taken := out[k]; !taken {
					out[k] = v
				}
			}
		}
		return out
	}
}

func lastParagraph(s *goquery.Selection) string {
	var last string
	s.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := CleanText(p.Text()); t != "" {
			last = t
		}
	})
	return last
}
