package extract

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-scraper/internal/model"
)

func TestAmazon_Extract(t *testing.T) {
	t.Parallel()

	f := Amazon("Health & Household").Extract(mustDoc(t, amazonPage))

	assert.Equal(t, model.Some("Widget Pro 500"), f.Title)
	assert.Equal(t, model.Some("Acme"), f.Brand)
	assert.Equal(t, model.Some("B01N5R8BBQ"), f.ASIN)
	assert.Equal(t, model.Some("$12.99"), f.Price)
	assert.Equal(t, model.Some("$0.22"), f.UnitPrice.Amount)
	assert.Equal(t, model.Some("Count"), f.UnitPrice.Unit)
	assert.Equal(t, model.Some(4.5), f.Rating)
	assert.Equal(t, model.Some(1234), f.NumRatings)
	assert.Equal(t, model.Some(1234), f.Rank)
	assert.Equal(t, model.Some("Other Ingredients: Rice Flour, Magnesium Stearate (Vegetable), Neem Extract"), f.Ingredients)

	assert.Equal(t, "Acme", f.Overview[KeyBrand])
	assert.Equal(t, "Capsule", f.Overview[KeyFormFactor])
	assert.Equal(t, "Immune Support", f.Overview[KeyUses])

	assert.Equal(t, "Acme Labs", f.Details[KeyManufacturer])
	assert.Equal(t, "B01N5R8BBQ", f.Details[KeyASIN])
	assert.Equal(t, "March 3, 2017", f.Details[KeyFirstAvailable])
	assert.Equal(t, "Tablet", f.Details[KeyFormFactor])
	assert.Equal(t, "USA", f.Details[KeyOrigin])

	assert.Contains(t, f.Important[KeyIngredients], "Rice Flour")

	src, ok := f.Provenance.Source(FieldPrice)
	require.True(t, ok)
	assert.Equal(t, "apex_price_to_pay", src)
	src, _ = f.Provenance.Source(FieldUnitPrice)
	assert.Equal(t, "small_unit_price", src)
	src, _ = f.Provenance.Source(FieldRank)
	assert.Equal(t, "category_text_scan", src)
}

func TestAmazon_TitleTrimmed(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><span id="productTitle">  Widget Pro 500  </span></body></html>`)
	f := Amazon("").Extract(doc)
	v, ok := f.Title.Get()
	require.True(t, ok)
	assert.Equal(t, "Widget Pro 500", v)
}

func TestAmazon_RankScan(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><p>Ranked well</p><span>#1,234 in Health &amp; Household</span></body></html>`)
	f := Amazon("Health & Household").Extract(doc)
	assert.Equal(t, model.Some(1234), f.Rank)
}

func TestAmazon_RankFromDetailsWhenScanMisses(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><table id="productDetails_detailBullets_sections1">
<tr><th>Best Sellers Rank</th><td>#87 in Beauty &amp; Personal Care</td></tr>
<tr><th>ASIN</th><td>B07XYZ1234</td></tr>
</table></body></html>`)
	f := Amazon("Health & Household").Extract(doc)
	assert.Equal(t, model.Some(87), f.Rank)
	assert.Equal(t, model.Some("B07XYZ1234"), f.ASIN)
	src, _ := f.Provenance.Source(FieldRank)
	assert.Equal(t, "detail_rank", src)
}

func TestAmazon_AllStrategiesMiss(t *testing.T) {
	t.Parallel()

	f := Amazon("Health & Household").Extract(mustDoc(t, `<html><body><p>nothing here</p></body></html>`))

	assert.False(t, f.Title.Valid())
	assert.False(t, f.Brand.Valid())
	assert.False(t, f.ASIN.Valid())
	assert.False(t, f.Price.Valid())
	assert.False(t, f.UnitPrice.Valid())
	assert.False(t, f.Rating.Valid())
	assert.False(t, f.NumRatings.Valid())
	assert.False(t, f.Rank.Valid())
	assert.False(t, f.Ingredients.Valid())
	assert.Equal(t, model.Unavailable, f.Title.String())
	assert.NotNil(t, f.Overview)
	assert.Empty(t, f.Overview)
	assert.Empty(t, f.Details)
	assert.Empty(t, f.Important)
	assert.Empty(t, f.Provenance)
}

func TestAmazon_NilDocument(t *testing.T) {
	t.Parallel()

	f := Amazon("").Extract(nil)
	assert.False(t, f.Title.Valid())
	assert.Empty(t, f.Details)
}

func TestAmazon_Idempotent(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, amazonPage)
	before, err := goquery.OuterHtml(doc.Selection)
	require.NoError(t, err)

	ex := Amazon("Health & Household")
	first := ex.Extract(doc)
	second := ex.Extract(doc)
	assert.Equal(t, first, second)

	after, err := goquery.OuterHtml(doc.Selection)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAmazon_BrandIgnoresManufacturer(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div id="detailBullets_feature_div"><ul>
<li><span class="a-list-item"><span class="a-text-bold">Manufacturer :</span><span>Acme Labs</span></span></li>
</ul></div></body></html>`)
	f := Amazon("").Extract(doc)
	assert.False(t, f.Brand.Valid())
	assert.Equal(t, "Acme Labs", f.Details[KeyManufacturer])
}

func TestAmazon_BrandBeatsManufacturer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		page   string
		brand  string
		source string
	}{
		{
			name: "plain overview row",
			page: `<html><body>
<div id="productOverview_feature_div"><table><tr><td>Brand</td><td>TableBrand</td></tr></table></div>
<div id="detailBullets_feature_div"><ul>
<li><span class="a-list-item"><span class="a-text-bold">Brand :</span><span>BulletBrand</span></span></li>
<li><span class="a-list-item"><span class="a-text-bold">Manufacturer :</span><span>MakerCo</span></span></li>
</ul></div></body></html>`,
			brand:  "TableBrand",
			source: "overview_brand",
		},
		{
			name: "detail bullet",
			page: `<html><body><div id="detailBullets_feature_div"><ul>
<li><span class="a-list-item"><span class="a-text-bold">Manufacturer :</span><span>MakerCo</span></span></li>
<li><span class="a-list-item"><span class="a-text-bold">Brand :</span><span>BulletBrand</span></span></li>
</ul></div></body></html>`,
			brand:  "BulletBrand",
			source: "detail_brand",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := Amazon("").Extract(mustDoc(t, tt.page))
			assert.Equal(t, model.Some(tt.brand), f.Brand)
			src, _ := f.Provenance.Source(FieldBrand)
			assert.Equal(t, tt.source, src)
		})
	}
}

func TestAmazon_BrandFromByline(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><a id="bylineInfo">Brand: Neemco</a></body></html>`)
	assert.Equal(t, model.Some("Neemco"), Amazon("").Extract(doc).Brand)

	doc = mustDoc(t, `<html><body><a id="bylineInfo">Visit the Acme Store</a></body></html>`)
	assert.Equal(t, model.Some("Acme"), Amazon("").Extract(doc).Brand)
}

func TestAmazon_AlternateDetailLayout(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div id="detailBulletsWrapper_feature_div"><ul>
<li><span class="a-list-item"><span class="a-text-bold">ASIN :</span><span>B09ABCDEF2</span></span></li>
<li><span class="a-list-item"><span class="a-text-bold">Date First Available :</span><span>June 1, 2021</span></span></li>
</ul></div></body></html>`)
	f := Amazon("").Extract(doc)
	assert.Equal(t, model.Some("B09ABCDEF2"), f.ASIN)
	assert.Equal(t, "June 1, 2021", f.Details[KeyFirstAvailable])
}

func TestAmazon_MiniUnitPrice(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
<span class="a-price aok-align-center"><span class="a-offscreen">$8.49</span></span>
<span>(<span class="a-price a-text-price" data-a-size="mini"><span class="a-offscreen">$1.05</span></span>/Fl Oz)</span>
</body></html>`)
	f := Amazon("").Extract(doc)
	assert.Equal(t, model.Some("$8.49"), f.Price)
	assert.Equal(t, model.Some("$1.05"), f.UnitPrice.Amount)
	assert.Equal(t, model.Some("Fl Oz"), f.UnitPrice.Unit)
	src, _ := f.Provenance.Source(FieldUnitPrice)
	assert.Equal(t, "mini_unit_price", src)
}

func TestAmazon_CoreDesktopSibling(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div id="corePrice_desktop">
<span class="a-price a-text-price"><span class="a-offscreen">$5.00</span></span><span>($0.50 / Ounce)</span>
</div></body></html>`)
	f := Amazon("").Extract(doc)
	assert.Equal(t, model.Some("$5.00"), f.Price)
	assert.Equal(t, model.Some("$0.50"), f.UnitPrice.Amount)
	assert.Equal(t, model.Some("Ounce"), f.UnitPrice.Unit)
}

func TestAmazon_CorePriceBlockWithRepeatedAmount(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div id="centerCol"><div id="corePriceDisplay_desktop_feature_div">
<span class="label">Price:</span>
<div><span><span class="a-offscreen">$9.99</span></span><span>($0.10$0.10 / Count)</span></div>
</div></div></body></html>`)
	f := Amazon("").Extract(doc)
	assert.Equal(t, model.Some("$9.99"), f.Price)
	assert.Equal(t, model.Some("$0.10"), f.UnitPrice.Amount)
	assert.Equal(t, model.Some("Count"), f.UnitPrice.Unit)

	src, _ := f.Provenance.Source(FieldPrice)
	assert.Equal(t, "core_price_block", src)
	src, _ = f.Provenance.Source(FieldUnitPrice)
	assert.Equal(t, "core_price_offscreen", src)
}

func TestAmazon_RatingFallsBackToIconText(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><span id="acrPopover" title="not rated"><span class="a-icon-alt">4.1 out of 5 stars</span></span>
<span id="acrCustomerReviewText">no ratings</span></body></html>`)
	f := Amazon("").Extract(doc)
	assert.Equal(t, model.Some(4.1), f.Rating)
	assert.False(t, f.NumRatings.Valid())
}

func TestAmazon_RatingOutOfRange(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><span id="acrPopover" title="9.5 out of 5 stars"></span></body></html>`)
	assert.False(t, Amazon("").Extract(doc).Rating.Valid())
}

func TestAmazon_IngredientsAltPanel(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div id="important-information"><div>
<h4>Ingredients</h4><p>Safety</p><p>Neem leaf, Rice Flour</p></div></div></body></html>`)
	f := Amazon("").Extract(doc)
	assert.Equal(t, model.Some("Neem leaf, Rice Flour"), f.Ingredients)
	src, _ := f.Provenance.Source(FieldIngredients)
	assert.Equal(t, "important_information_alt", src)
}

func TestIHerb_Extract(t *testing.T) {
	t.Parallel()

	f := IHerb("Supplements").Extract(mustDoc(t, iherbPage))

	assert.Equal(t, model.Some("NOW Foods, Neem Leaves, 475 mg, 100 Veg Capsules"), f.Title)
	assert.Equal(t, model.Some("NOW Foods"), f.Brand)
	assert.Equal(t, model.Some("NOW-04670"), f.ASIN)
	assert.Equal(t, model.Some("$9.49"), f.Price)
	assert.Equal(t, model.Some("$0.09"), f.UnitPrice.Amount)
	assert.Equal(t, model.Some("Count"), f.UnitPrice.Unit)
	assert.Equal(t, model.Some(4.7), f.Rating)
	assert.Equal(t, model.Some(2345), f.NumRatings)
	assert.Equal(t, model.Some(120), f.Rank)
	assert.Equal(t, "09/2009", f.Details[KeyFirstAvailable])
	assert.Equal(t, "USA", f.Details[KeyOrigin])

	v, ok := f.Ingredients.Get()
	require.True(t, ok)
	assert.Contains(t, v, "Rice Flour")
}

func TestIHerb_TitleFallback(t *testing.T) {
	t.Parallel()

	f := IHerb("").Extract(mustDoc(t, `<html><head><meta property="og:title" content="Neem Oil"></head><body></body></html>`))
	assert.Equal(t, model.Some("Neem Oil"), f.Title)
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	ex, err := reg.Lookup(model.SiteAmazon)
	require.NoError(t, err)
	assert.Equal(t, model.SiteAmazon, ex.Site())

	ex, err = reg.Lookup(model.SiteIHerb)
	require.NoError(t, err)
	assert.Equal(t, model.SiteIHerb, ex.Site())

	_, err = reg.Lookup(model.Site("ebay"))
	assert.Error(t, err)
}

func TestReadSection_PanicIsEmpty(t *testing.T) {
	t.Parallel()

	r := SectionReader(func(*goquery.Document) map[string]string { panic("bad markup") })
	assert.Empty(t, readSection(r, mustDoc(t, "<p></p>")))
	assert.Empty(t, readSection(nil, mustDoc(t, "<p></p>")))
}
