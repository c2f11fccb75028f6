package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/product-scraper/internal/model"
)

// IHerbLabels covers the product specs list and the overview panels.
var IHerbLabels = Labels{
	"brand":                KeyBrand,
	"manufacturer":         KeyManufacturer,
	"product code":         KeyASIN,
	"date first available": KeyFirstAvailable,
	"form":                 KeyFormFactor,
	"product form":         KeyFormFactor,
	"suggested use":        KeyUses,
	"country of origin":    KeyOrigin,
	"made in":              KeyOrigin,
	"other ingredients":    KeyIngredients,
	"ingredients":          KeyIngredients,
}

const iherbSpecs = "ul#product-specs-list li"

// IHerb returns the iHerb extractor.
func IHerb(rankCategory string) *TableExtractor {
	specs := ColonListReader(iherbSpecs, IHerbLabels)

	return NewTableExtractor(model.SiteIHerb, Table{
		Title: NewChain(FieldTitle,
			Strategy[string]{Name: "product_name", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "h1#name")
			}},
			Strategy[string]{Name: "og_title", Fn: func(doc *goquery.Document) (string, bool) {
				return attrOf(doc, `meta[property="og:title"]`, "content")
			}},
		),

		Brand: NewChain(FieldBrand,
			Strategy[string]{Name: "brand_link", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "#brand a")
			}},
			Strategy[string]{Name: "spec_brand", Fn: func(doc *goquery.Document) (string, bool) {
				v, ok := specs(doc)[KeyBrand]
				return v, ok
			}},
		),

		ASIN: NewChain(FieldASIN,
			Strategy[string]{Name: "spec_product_code", Fn: func(doc *goquery.Document) (string, bool) {
				v, ok := specs(doc)[KeyASIN]
				return v, ok
			}},
			Strategy[string]{Name: "part_number", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, `[itemprop="sku"]`)
			}},
		),

		Price: NewChain(FieldPrice,
			Strategy[string]{Name: "price_block", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "#price")
			}},
			Strategy[string]{Name: "price_inner_text", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "div.price-inner-text p")
			}},
		),

		UnitPrice: NewChain(FieldUnitPrice,
			Strategy[model.UnitPrice]{Name: "price_per_unit", Fn: func(doc *goquery.Document) (model.UnitPrice, bool) {
				t, ok := textOf(doc, ".price-per-unit, .list-price-per-unit")
				if !ok {
					return model.UnitPrice{}, false
				}
				return unitPriceFrom(t)
			}},
		),

		Rating: NewChain(FieldRating,
			Strategy[float64]{Name: "stars_title", Fn: func(doc *goquery.Document) (float64, bool) {
				t, ok := attrOf(doc, "a.stars", "title")
				if !ok {
					return 0, false
				}
				return validRating(LeadingFloat(t))
			}},
			Strategy[float64]{Name: "rating_value", Fn: func(doc *goquery.Document) (float64, bool) {
				t, ok := attrOf(doc, `meta[itemprop="ratingValue"]`, "content")
				if !ok {
					return 0, false
				}
				return validRating(LeadingFloat(t))
			}},
		),

		NumRatings: NewChain(FieldNumRatings,
			Strategy[int]{Name: "rating_count", Fn: func(doc *goquery.Document) (int, bool) {
				t, ok := textOf(doc, "a.rating-count span")
				if !ok {
					return 0, false
				}
				return ParseCount(t)
			}},
			Strategy[int]{Name: "review_count", Fn: func(doc *goquery.Document) (int, bool) {
				t, ok := attrOf(doc, `meta[itemprop="reviewCount"]`, "content")
				if !ok {
					return 0, false
				}
				return ParseCount(t)
			}},
		),

		Rank: NewChain(FieldRank,
			Strategy[int]{Name: "best_selling_rank", Fn: func(doc *goquery.Document) (int, bool) {
				var (
					rank  int
					found bool
				)
				doc.Find("div.best-selling-rank span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
					rank, found = ParseRank(CleanText(s.Text()), rankCategory)
					return !found
				})
				return rank, found
			}},
			Strategy[int]{Name: "category_text_scan", Fn: func(doc *goquery.Document) (int, bool) {
				return scanRank(doc, rankCategory)
			}},
		),

		Ingredients: NewChain(FieldIngredients,
			Strategy[string]{Name: "overview_ingredients", Fn: func(doc *goquery.Document) (string, bool) {
				var out string
				doc.Find("div.prodOverviewIngred, div.supplement-facts-container").EachWithBreak(func(_ int, s *goquery.Selection) bool {
					text := CleanText(s.Text())
					if i := strings.Index(strings.ToLower(text), "other ingredients"); i >= 0 {
						out = text[i:]
						return false
					}
					return true
				})
				return out, out != ""
			}},
		),

		Details:   specs,
		Important: PanelReader("div.product-overview", IHerbLabels),
	})
}
