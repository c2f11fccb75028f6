package model

// UnitCount is the unit type that routes a per-unit price into the count column.
const UnitCount = "Count"

// UnitPrice is a per-unit price observation such as "$0.12 / Count".
type UnitPrice struct {
	Amount Field[string] `json:"amount"`
	Unit   Field[string] `json:"unit"`
}

// Valid reports whether both halves of the pair were resolved.
func (u UnitPrice) Valid() bool {
	return u.Amount.Valid() && u.Unit.Valid()
}

// ProductRecord is one fixed-schema output row for one product page.
// URL and Source are always set; every other attribute is a Field that is
// either resolved or the Unavailable sentinel.
type ProductRecord struct {
	Source             Site           `json:"source"`
	URL                string         `json:"url"`
	Title              Field[string]  `json:"title"`
	Brand              Field[string]  `json:"brand"`
	ASIN               Field[string]  `json:"asin"`
	Category           string         `json:"category"`
	Price              Field[string]  `json:"price"`
	PricePerUnitAmount Field[string]  `json:"price_per_unit_amount"`
	PricePerUnitType   Field[string]  `json:"price_per_unit_type"`
	PricePerCount      Field[string]  `json:"price_per_count"`
	PricePerWeight     Field[string]  `json:"price_per_weight"`
	Rating             Field[float64] `json:"rating"`
	NumRatings         Field[int]     `json:"num_ratings"`
	Rank               Field[int]     `json:"rank"`
	FormFactor         Field[string]  `json:"form_factor"`
	FirstAvailable     Field[string]  `json:"first_available"`
	Uses               Field[string]  `json:"uses"`
	Origin             Field[string]  `json:"origin"`
	Ingredients        Field[string]  `json:"ingredients"`
	Provenance         Provenance     `json:"provenance,omitempty"`
}

// recordColumns is the stable column order used by Columns and Row.
var recordColumns = []string{
	"source",
	"url",
	"title",
	"brand",
	"asin",
	"category",
	"price",
	"price_per_unit_amount",
	"price_per_unit_type",
	"price_per_count",
	"price_per_weight",
	"rating",
	"num_ratings",
	"rank",
	"form_factor",
	"first_available",
	"uses",
	"origin",
	"ingredients",
}

// Columns returns the record's column names in output order.
func Columns() []string {
	out := make([]string, len(recordColumns))
	copy(out, recordColumns)
	return out
}

// Row renders the record as one string per column, in Columns order.
func (r ProductRecord) Row() []string {
	return []string{
		r.Source.DisplayName(),
		r.URL,
		r.Title.String(),
		r.Brand.String(),
		r.ASIN.String(),
		r.Category,
		r.Price.String(),
		r.PricePerUnitAmount.String(),
		r.PricePerUnitType.String(),
		r.PricePerCount.String(),
		r.PricePerWeight.String(),
		r.Rating.String(),
		r.NumRatings.String(),
		r.Rank.String(),
		r.FormFactor.String(),
		r.FirstAvailable.String(),
		r.Uses.String(),
		r.Origin.String(),
		r.Ingredients.String(),
	}
}

// Value returns the rendered value for a column name, and false for an
// unknown column.
func (r ProductRecord) Value(column string) (string, bool) {
	row := r.Row()
	for i, c := range recordColumns {
		if c == column {
			return row[i], true
		}
	}
	return "", false
}

// FetchResult is the transient outcome of retrieving one product page.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

// OK reports whether the fetch produced a usable page.
func (f FetchResult) OK() bool {
	return f.Err == nil
}
