package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/product-scraper/internal/model"
)

const (
	amazonOverviewRows = "#productOverview_feature_div tr"
	amazonBullets      = "#detailBullets_feature_div li"
	amazonBulletsAlt   = "#detailBulletsWrapper_feature_div li"
	amazonDetailTable  = "#productDetails_detailBullets_sections1 tr, #productDetails_techSpec_section_1 tr"
)

// Amazon returns the Amazon extractor. rankCategory is the category name the
// rank scan looks for, e.g. "Health & Household". The brand chain never reads
// the manufacturer; record building falls back to it once sections merge.
func Amazon(rankCategory string) *TableExtractor {
	overview := OverviewReader(amazonOverviewRows, AmazonLabels)
	details := MergeReaders(
		BulletReader(amazonBullets, AmazonLabels),
		BulletReader(amazonBulletsAlt, AmazonLabels),
		HeaderTableReader(amazonDetailTable, AmazonLabels),
	)

	return NewTableExtractor(model.SiteAmazon, Table{
		Title: NewChain(FieldTitle,
			Strategy[string]{Name: "product_title", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "#productTitle")
			}},
			Strategy[string]{Name: "title_block", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "#title")
			}},
		),

		Brand: NewChain(FieldBrand,
			Strategy[string]{Name: "overview_brand_row", Fn: func(doc *goquery.Document) (string, bool) {
				return textOf(doc, "tr.po-brand span.po-break-word")
			}},
			Strategy[string]{Name: "overview_brand", Fn: func(doc *goquery.Document) (string, bool) {
				v, ok := overview(doc)[KeyBrand]
				return v, ok
			}},
			Strategy[string]{Name: "detail_brand", Fn: func(doc *goquery.Document) (string, bool) {
				v, ok := details(doc)[KeyBrand]
				return v, ok
			}},
			Strategy[string]{Name: "byline", Fn: amazonByline},
		),

		ASIN: NewChain(FieldASIN,
			Strategy[string]{Name: "detail_asin", Fn: func(doc *goquery.Document) (string, bool) {
				v, ok := details(doc)[KeyASIN]
				return v, ok
			}},
			Strategy[string]{Name: "asin_input", Fn: func(doc *goquery.Document) (string, bool) {
				return attrOf(doc, "input#ASIN", "value")
			}},
		),

		Price: NewChain(FieldPrice,
			Strategy[string]{Name: "apex_price_to_pay", Fn: func(doc *goquery.Document) (string, bool) {
				return priceText(doc.Find("span.a-price.a-text-price.a-size-medium.apexPriceToPay").First())
			}},
			Strategy[string]{Name: "align_center_price", Fn: func(doc *goquery.Document) (string, bool) {
				return priceText(doc.Find("span.a-price.aok-align-center").First())
			}},
			Strategy[string]{Name: "core_price_desktop", Fn: func(doc *goquery.Document) (string, bool) {
				return priceText(doc.Find("#corePrice_desktop .a-price.a-text-price").First())
			}},
			Strategy[string]{Name: "core_price_block", Fn: func(doc *goquery.Document) (string, bool) {
				price, _, ok := amazonCorePriceBlock(doc)
				return price, ok && price != ""
			}},
		),

		UnitPrice: NewChain(FieldUnitPrice,
			Strategy[model.UnitPrice]{Name: "small_unit_price", Fn: func(doc *goquery.Document) (model.UnitPrice, bool) {
				return amazonTrailedUnitPrice(doc.Find("span.a-price.a-text-price.a-size-small").First())
			}},
			Strategy[model.UnitPrice]{Name: "mini_unit_price", Fn: func(doc *goquery.Document) (model.UnitPrice, bool) {
				return amazonTrailedUnitPrice(doc.Find(`span.a-price.a-text-price[data-a-size="mini"]`).First())
			}},
			Strategy[model.UnitPrice]{Name: "core_price_sibling", Fn: amazonCoreSiblingUnitPrice},
			Strategy[model.UnitPrice]{Name: "core_price_offscreen", Fn: func(doc *goquery.Document) (model.UnitPrice, bool) {
				_, text, ok := amazonCorePriceBlock(doc)
				if !ok {
					return model.UnitPrice{}, false
				}
				return unitPriceFrom(text)
			}},
		),

		Rating: NewChain(FieldRating,
			Strategy[float64]{Name: "popover_title", Fn: func(doc *goquery.Document) (float64, bool) {
				t, ok := attrOf(doc, "#acrPopover", "title")
				if !ok {
					return 0, false
				}
				return validRating(LeadingFloat(t))
			}},
			Strategy[float64]{Name: "popover_icon_alt", Fn: func(doc *goquery.Document) (float64, bool) {
				t, ok := textOf(doc, "#acrPopover span.a-icon-alt")
				if !ok {
					return 0, false
				}
				return validRating(LeadingFloat(t))
			}},
		),

		NumRatings: NewChain(FieldNumRatings,
			Strategy[int]{Name: "customer_review_text", Fn: func(doc *goquery.Document) (int, bool) {
				t, ok := textOf(doc, "#acrCustomerReviewText")
				if !ok {
					return 0, false
				}
				return ParseCount(t)
			}},
		),

		Rank: NewChain(FieldRank,
			Strategy[int]{Name: "category_text_scan", Fn: func(doc *goquery.Document) (int, bool) {
				return scanRank(doc, rankCategory)
			}},
			Strategy[int]{Name: "detail_rank", Fn: func(doc *goquery.Document) (int, bool) {
				v, ok := details(doc)[KeyRank]
				if !ok {
					return 0, false
				}
				return ParseRank(v, "")
			}},
		),

		Ingredients: NewChain(FieldIngredients,
			Strategy[string]{Name: "important_information", Fn: func(doc *goquery.Document) (string, bool) {
				return headedParagraph(doc.Find("#importantInformation_feature_div"), "Ingredients")
			}},
			Strategy[string]{Name: "important_information_alt", Fn: func(doc *goquery.Document) (string, bool) {
				return headedParagraph(doc.Find("#important-information"), "Ingredients")
			}},
		),

		Overview: overview,
		Details:  details,
		Important: MergeReaders(
			PanelReader("#importantInformation_feature_div", AmazonLabels),
			PanelReader("#important-information", AmazonLabels),
		),
	})
}

// amazonByline reads "Brand: Acme" or "Visit the Acme Store".
func amazonByline(doc *goquery.Document) (string, bool) {
	t, ok := textOf(doc, "#bylineInfo")
	if !ok {
		return "", false
	}
	if v, found := strings.CutPrefix(t, "Brand:"); found {
		t = v
	} else if v, found := strings.CutPrefix(t, "Visit the "); found {
		t = strings.TrimSuffix(v, " Store")
	}
	t = strings.TrimSpace(t)
	return t, t != ""
}

// amazonTrailedUnitPrice reads a unit price element whose amount sits in a
// nested span and whose unit trails it in the parent, as in
// "(<span>$0.12</span> / Count)".
func amazonTrailedUnitPrice(s *goquery.Selection) (model.UnitPrice, bool) {
	amount, ok := priceText(s)
	if !ok {
		return model.UnitPrice{}, false
	}
	unit, ok := lastTextNode(s.Parent())
	if !ok {
		return model.UnitPrice{}, false
	}
	unit, ok = UnitFromTrailer(unit)
	if !ok {
		return model.UnitPrice{}, false
	}
	return model.UnitPrice{Amount: model.Some(amount), Unit: model.Some(unit)}, true
}

// amazonCoreSiblingUnitPrice reads the "(x / unit)" element that follows the
// first price in #corePrice_desktop.
func amazonCoreSiblingUnitPrice(doc *goquery.Document) (model.UnitPrice, bool) {
	price := doc.Find("#corePrice_desktop .a-price.a-text-price").First()
	if price.Length() == 0 {
		return model.UnitPrice{}, false
	}
	return unitPriceFrom(price.Next().Text())
}

// amazonCorePriceBlock reads the center column layout where a "Price" label
// is followed by a block holding the price span and then the per-unit text,
// whose amount may be rendered twice.
func amazonCorePriceBlock(doc *goquery.Document) (price, unitText string, ok bool) {
	var label *goquery.Selection
	doc.Find("#centerCol [id*='corePrice'] *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if ownTextHasPrefix(s, "Price") {
			label = s
			return false
		}
		return true
	})
	if label == nil {
		return "", "", false
	}
	block := label.Next()
	if block.Length() == 0 {
		block = label.Parent().Next()
	}
	parts := block.ChildrenFiltered("span")
	if parts.Length() < 2 {
		return "", "", false
	}
	price = CleanText(parts.Eq(0).Find("span").First().Text())
	return price, parts.Eq(1).Text(), true
}

func unitPriceFrom(text string) (model.UnitPrice, bool) {
	amount, unit, ok := SplitUnitPrice(text)
	if !ok {
		return model.UnitPrice{}, false
	}
	return model.UnitPrice{Amount: model.Some(amount), Unit: model.Some(unit)}, true
}

func validRating(v float64, ok bool) (float64, bool) {
	if !ok || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}

// scanRank finds the first text node naming category with a "#N" token.
func scanRank(doc *goquery.Document, category string) (int, bool) {
	if category == "" {
		return 0, false
	}
	var (
		rank  int
		found bool
	)
	scanText(doc, func(text string) bool {
		if !strings.Contains(text, "#") {
			return false
		}
		rank, found = ParseRank(text, category)
		return found
	})
	return rank, found
}

// headedParagraph finds an h4 under container starting with heading and
// returns the last non-empty paragraph beside it.
func headedParagraph(container *goquery.Selection, heading string) (string, bool) {
	var out string
	container.Find("h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.HasPrefix(CleanText(h.Text()), heading) {
			return true
		}
		out = lastParagraph(h.Parent())
		return out == ""
	})
	return out, out != ""
}
