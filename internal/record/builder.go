// Package record assembles extracted fields into fixed-schema product records.
package record

import (
	"strings"

	"github.com/sells-group/product-scraper/internal/extract"
	"github.com/sells-group/product-scraper/internal/model"
)

// Section provenance labels.
const (
	SourceOverview  = "overview"
	SourceDetails   = "details"
	SourceImportant = "important"
)

// merged holds section values after priority merging, with the section each
// value came from.
type merged struct {
	values  map[string]string
	sources map[string]string
}

func (m merged) get(key string) (string, string, bool) {
	v, ok := m.values[key]
	return v, m.sources[key], ok
}

// MergeSections combines the labelled sections. The overview table beats the
// detail list, which beats the important information panel; a populated key
// is never overwritten.
func MergeSections(f extract.Fields) map[string]string {
	return mergeSections(f).values
}

func mergeSections(f extract.Fields) merged {
	m := merged{values: map[string]string{}, sources: map[string]string{}}
	for _, sec := range []struct {
		name   string
		values map[string]string
	}{
		{SourceOverview, f.Overview},
		{SourceDetails, f.Details},
		{SourceImportant, f.Important},
	} {
		for k, v := range sec.values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if _, taken := m.values[k]; taken {
				continue
			}
			m.values[k] = v
			m.sources[k] = sec.name
		}
	}
	return m
}

// Build assembles one record. Chain results win for their own field; section
// values fill fields the chains left unresolved. The result never shares
// mutable state with f.
func Build(url string, site model.Site, category string, f extract.Fields) model.ProductRecord {
	sections := mergeSections(f)
	prov := model.Provenance{}

	r := model.ProductRecord{
		Source:     site,
		URL:        url,
		Category:   category,
		Title:      f.Title,
		Price:      f.Price,
		Rating:     f.Rating,
		NumRatings: f.NumRatings,
		Provenance: prov,
	}
	chainSource := func(field string) string {
		s, _ := f.Provenance.Source(field)
		return s
	}
	if r.Title.Valid() {
		prov.Set("title", chainSource(extract.FieldTitle))
	}
	if r.Price.Valid() {
		prov.Set("price", chainSource(extract.FieldPrice))
	}
	if r.Rating.Valid() {
		prov.Set("rating", chainSource(extract.FieldRating))
	}
	if r.NumRatings.Valid() {
		prov.Set("num_ratings", chainSource(extract.FieldNumRatings))
	}

	r.Brand = resolveString(f.Brand, chainSource(extract.FieldBrand), sections, prov, "brand", extract.KeyBrand)
	// Manufacturer stands in for brand only when nothing named the brand.
	if !r.Brand.Valid() {
		r.Brand = resolveString(model.None[string](), "", sections, prov, "brand", extract.KeyManufacturer)
	}
	r.ASIN = resolveString(f.ASIN, chainSource(extract.FieldASIN), sections, prov, "asin", extract.KeyASIN)
	r.FormFactor = resolveString(model.None[string](), "", sections, prov, "form_factor", extract.KeyFormFactor)
	r.FirstAvailable = resolveString(model.None[string](), "", sections, prov, "first_available", extract.KeyFirstAvailable)
	r.Uses = resolveString(model.None[string](), "", sections, prov, "uses", extract.KeyUses)
	r.Origin = resolveString(model.None[string](), "", sections, prov, "origin", extract.KeyOrigin)

	r.Rank = f.Rank
	if r.Rank.Valid() {
		prov.Set("rank", chainSource(extract.FieldRank))
	} else if v, src, ok := sections.get(extract.KeyRank); ok {
		if n, ok := extract.ParseRank(v, ""); ok {
			r.Rank = model.Some(n)
			prov.Set("rank", src)
		}
	}

	applyUnitPrice(&r, f.UnitPrice)
	if f.UnitPrice.Valid() {
		src := chainSource(extract.FieldUnitPrice)
		prov.Set("price_per_unit_amount", src)
		prov.Set("price_per_unit_type", src)
	}

	raw, rawSrc := f.Ingredients, chainSource(extract.FieldIngredients)
	if !raw.Valid() {
		if v, src, ok := sections.get(extract.KeyIngredients); ok {
			raw, rawSrc = model.Some(v), src
		}
	}
	if text, ok := raw.Get(); ok {
		if others := OtherIngredients(text, category); len(others) > 0 {
			r.Ingredients = model.Some(strings.Join(others, ", "))
			prov.Set("ingredients", rawSrc)
		}
	}

	return r
}

// resolveString keeps a resolved chain value, otherwise takes key from the
// merged sections.
func resolveString(chain model.Field[string], chainSrc string, sections merged, prov model.Provenance, column, key string) model.Field[string] {
	if chain.Valid() {
		prov.Set(column, chainSrc)
		return chain
	}
	if v, src, ok := sections.get(key); ok {
		prov.Set(column, src)
		return model.Some(v)
	}
	return model.None[string]()
}

// applyUnitPrice copies the per-unit pair and routes the amount into exactly
// one of the count or weight columns.
func applyUnitPrice(r *model.ProductRecord, u model.UnitPrice) {
	r.PricePerUnitAmount = u.Amount
	r.PricePerUnitType = u.Unit
	r.PricePerCount = model.None[string]()
	r.PricePerWeight = model.None[string]()

	amount, okAmount := u.Amount.Get()
	unit, okUnit := u.Unit.Get()
	if !okAmount || !okUnit {
		return
	}
	if strings.EqualFold(unit, model.UnitCount) {
		r.PricePerCount = model.Some(amount)
		return
	}
	r.PricePerWeight = model.Some(amount)
}
