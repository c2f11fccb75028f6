package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const amazonPage = `<html><body>
<div id="centerCol">
  <span id="productTitle">  Widget Pro 500  </span>
  <a id="bylineInfo">Visit the Acme Store</a>
  <span id="acrPopover" title="4.5 out of 5 stars"><span class="a-icon-alt">4.5 out of 5 stars</span></span>
  <span id="acrCustomerReviewText">1,234 ratings</span>
  <div id="corePrice_feature_div">
    <span class="a-price a-text-price a-size-medium apexPriceToPay"><span class="a-offscreen">$12.99</span><span aria-hidden="true">$12.99</span></span>
    <span>(<span class="a-price a-text-price a-size-small"><span class="a-offscreen">$0.22</span></span> / Count)</span>
  </div>
</div>
<div id="productOverview_feature_div"><table>
  <tr class="a-spacing-small po-brand"><td><span>Brand</span></td><td><span class="po-break-word">Acme</span></td></tr>
  <tr class="po-item_form"><td>Item Form</td><td>Capsule</td></tr>
  <tr class="po-recommended_uses_for_product"><td>Recommended Uses For Product</td><td>Immune Support</td></tr>
</table></div>
<div id="detailBullets_feature_div"><ul>
  <li><span class="a-list-item"><span class="a-text-bold">Manufacturer &rlm; : &lrm;</span><span>Acme Labs</span></span></li>
  <li><span class="a-list-item"><span class="a-text-bold">ASIN &rlm; : &lrm;</span><span>B01N5R8BBQ</span></span></li>
  <li><span class="a-list-item"><span class="a-text-bold">Date First Available &rlm; : &lrm;</span><span>March 3, 2017</span></span></li>
  <li><span class="a-list-item"><span class="a-text-bold">Item Form :</span><span>Tablet</span></span></li>
  <li><span class="a-list-item"><span class="a-text-bold">Country of Origin :</span><span>USA</span></span></li>
</ul></div>
<ul><li><span class="a-list-item"><span class="a-text-bold">Best Sellers Rank:</span> #1,234 in Health &amp; Household (<a href="#">See Top 100</a>)</span></li></ul>
<div id="importantInformation_feature_div"><div class="a-section">
  <h4>Ingredients</h4><p></p><p>Other Ingredients: Rice Flour, Magnesium Stearate (Vegetable), Neem Extract</p>
</div></div>
</body></html>`

const iherbPage = `<html><head><meta property="og:title" content="NOW Foods, Neem Leaves"></head><body>
<h1 id="name">NOW Foods, Neem Leaves, 475 mg, 100 Veg Capsules</h1>
<div id="brand"><a href="/c/now-foods">NOW Foods</a></div>
<div id="price">$9.49</div>
<div class="price-per-unit">$0.09/Count</div>
<a class="stars" title="4.7/5 - 2,345 Reviews"></a>
<a class="rating-count"><span>2,345</span></a>
<div class="best-selling-rank"><span>#3 in Neem</span><span>#120 in Supplements</span></div>
<ul id="product-specs-list">
  <li>Product code: NOW-04670</li>
  <li>Date First Available: 09/2009</li>
  <li>Made in: USA</li>
</ul>
<div class="prodOverviewIngred"><p>Other ingredients: Cellulose (capsule), Neem Leaf Powder, Rice Flour.</p></div>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
