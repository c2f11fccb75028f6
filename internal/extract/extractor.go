package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/product-scraper/internal/model"
)

// Field names used in chains and provenance.
const (
	FieldTitle       = "title"
	FieldBrand       = "brand"
	FieldASIN        = "asin"
	FieldPrice       = "price"
	FieldUnitPrice   = "price_per_unit"
	FieldRating      = "rating"
	FieldNumRatings  = "num_ratings"
	FieldRank        = "rank"
	FieldIngredients = "ingredients"
)

// Fields is everything one page yielded: per-field chain results plus the
// raw labelled sections the record builder merges.
type Fields struct {
	Title       model.Field[string]
	Brand       model.Field[string]
	ASIN        model.Field[string]
	Price       model.Field[string]
	UnitPrice   model.UnitPrice
	Rating      model.Field[float64]
	NumRatings  model.Field[int]
	Rank        model.Field[int]
	Ingredients model.Field[string] // raw panel text, before splitting

	Overview  map[string]string
	Details   map[string]string
	Important map[string]string

	// Provenance names the strategy that resolved each chain field.
	Provenance model.Provenance
}

// Extractor reads the fields of one site's product pages.
type Extractor interface {
	Site() model.Site
	Extract(doc *goquery.Document) Fields
}

// Table is the full strategy table for one site. Adding a site means
// writing a new Table; nothing else changes.
type Table struct {
	Title       Chain[string]
	Brand       Chain[string]
	ASIN        Chain[string]
	Price       Chain[string]
	UnitPrice   Chain[model.UnitPrice]
	Rating      Chain[float64]
	NumRatings  Chain[int]
	Rank        Chain[int]
	Ingredients Chain[string]

	Overview  SectionReader
	Details   SectionReader
	Important SectionReader
}

// TableExtractor implements Extractor over a strategy Table.
type TableExtractor struct {
	site  model.Site
	table Table
}

// NewTableExtractor creates an Extractor for site from its table.
func NewTableExtractor(site model.Site, table Table) *TableExtractor {
	return &TableExtractor{site: site, table: table}
}

// Site returns the site this extractor reads.
func (e *TableExtractor) Site() model.Site {
	return e.site
}

// Table returns the strategy table.
func (e *TableExtractor) Table() Table {
	return e.table
}

// Extract runs every chain and section reader against doc. It never fails;
// fields without a match are the unavailable sentinel.
func (e *TableExtractor) Extract(doc *goquery.Document) Fields {
	t := e.table
	f := Fields{Provenance: model.Provenance{}}

	var src string
	f.Title, src = t.Title.Resolve(doc)
	f.Provenance.Set(FieldTitle, src)
	f.Brand, src = t.Brand.Resolve(doc)
	f.Provenance.Set(FieldBrand, src)
	f.ASIN, src = t.ASIN.Resolve(doc)
	f.Provenance.Set(FieldASIN, src)
	f.Price, src = t.Price.Resolve(doc)
	f.Provenance.Set(FieldPrice, src)

	var unit model.Field[model.UnitPrice]
	unit, src = t.UnitPrice.Resolve(doc)
	f.UnitPrice = unit.Or(model.UnitPrice{})
	f.Provenance.Set(FieldUnitPrice, src)

	f.Rating, src = t.Rating.Resolve(doc)
	f.Provenance.Set(FieldRating, src)
	f.NumRatings, src = t.NumRatings.Resolve(doc)
	f.Provenance.Set(FieldNumRatings, src)
	f.Rank, src = t.Rank.Resolve(doc)
	f.Provenance.Set(FieldRank, src)
	f.Ingredients, src = t.Ingredients.Resolve(doc)
	f.Provenance.Set(FieldIngredients, src)

	f.Overview = readSection(t.Overview, doc)
	f.Details = readSection(t.Details, doc)
	f.Important = readSection(t.Important, doc)
	return f
}

// readSection runs a reader, treating a nil reader, nil document, or a
// panicking reader as an empty section.
func readSection(r SectionReader, doc *goquery.Document) (out map[string]string) {
	out = map[string]string{}
	if r == nil || doc == nil {
		return out
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = map[string]string{}
		}
	}()
	if m := r(doc); m != nil {
		out = m
	}
	return out
}
