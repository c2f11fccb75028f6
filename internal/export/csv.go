// Package export writes product records as CSV, text tables and spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/product-scraper/internal/model"
)

// DefaultDelimiter separates CSV fields unless Options overrides it.
const DefaultDelimiter = ';'

// Options configures CSV output.
type Options struct {
	Delimiter rune // 0 = DefaultDelimiter
	NoHeader  bool
}

// DelimiterFrom parses a one-character delimiter setting.
func DelimiterFrom(s string) (rune, error) {
	if s == "" {
		return DefaultDelimiter, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, eris.Errorf("export: delimiter %q must be a single character", s)
	}
	return r, nil
}

// WriteCSV writes a header line followed by one row per record. Unresolved
// fields render as the unavailable sentinel.
func WriteCSV(w io.Writer, records []model.ProductRecord, opts Options) error {
	cw := csv.NewWriter(w)
	cw.Comma = DefaultDelimiter
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	if !opts.NoHeader {
		if err := cw.Write(model.Columns()); err != nil {
			return eris.Wrap(err, "export: write CSV header")
		}
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return eris.Wrapf(err, "export: write CSV row for %s", r.URL)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

// tableColumns are the columns shown by WriteTable.
var tableColumns = []string{"source", "asin", "brand", "price", "rating", "num_ratings", "rank", "title"}

const maxTitle = 60

// WriteTable writes a compact aligned summary of records for terminals.
func WriteTable(w io.Writer, records []model.ProductRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.ToUpper(strings.Join(tableColumns, "\t"))); err != nil {
		return eris.Wrap(err, "export: write table header")
	}
	for _, r := range records {
		cells := make([]string, len(tableColumns))
		for i, c := range tableColumns {
			v, _ := r.Value(c)
			if c == "title" && utf8.RuneCountInString(v) > maxTitle {
				v = string([]rune(v)[:maxTitle-3]) + "..."
			}
			cells[i] = v
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return eris.Wrap(err, "export: write table row")
		}
	}
	return eris.Wrap(tw.Flush(), "export: flush table")
}
