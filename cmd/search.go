package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/product-scraper/internal/export"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/pipeline"
)

var searchFlags struct {
	page        int
	maxProducts int
	headers     []string
	csvPath     string
	xlsxPath    string
	sheet       string
	startRow    int
	persist     bool
	jsonOut     bool
}

var searchCmd = &cobra.Command{
	Use:   "search <site> <term>",
	Short: "Search a site and scrape every product on one results page",
	Example: `  product-scraper search amazon "neem" --max-products 10 --csv out.csv
  product-scraper search iherb "ashwagandha" --xlsx products.xlsx --sheet "Product List" --start-row 2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := model.ParseSite(args[0])
		if err != nil {
			return err
		}
		headers, err := parseHeaders(searchFlags.headers)
		if err != nil {
			return err
		}

		env, err := initScrapeEnv(ctx, "search", searchFlags.persist)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.SearchRequest{
			Site:        s,
			Term:        args[1],
			Page:        searchFlags.page,
			MaxProducts: searchFlags.maxProducts,
			Headers:     headers,
		}
		res, err := env.runSearch(ctx, req, logProgress)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if err := writeExports(res.Records); err != nil {
			return err
		}
		if err := writeSearchResult(cmd.OutOrStdout(), res, searchFlags.jsonOut); err != nil {
			return err
		}
		printSummary(cmd.ErrOrStderr(), res)
		return nil
	},
}

func init() {
	f := searchCmd.Flags()
	f.IntVar(&searchFlags.page, "page", 1, "search results page to scrape")
	f.IntVar(&searchFlags.maxProducts, "max-products", 0, "cap on product links fetched (0 = all)")
	f.StringArrayVar(&searchFlags.headers, "header", nil, "extra request header as key=value (repeatable)")
	f.StringVar(&searchFlags.csvPath, "csv", "", "write records to this CSV file")
	f.StringVar(&searchFlags.xlsxPath, "xlsx", "", "write records into this workbook")
	f.StringVar(&searchFlags.sheet, "sheet", "", "workbook sheet name (default from config)")
	f.IntVar(&searchFlags.startRow, "start-row", 0, "first workbook row to write (default from config)")
	f.BoolVar(&searchFlags.persist, "persist", false, "save the run and its records to the store")
	f.BoolVar(&searchFlags.jsonOut, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(searchCmd)
}

// parseHeaders turns repeated key=value flags into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, eris.Errorf("invalid header %q, want key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func logProgress(done, total int) {
	zap.L().Info("fetch progress", zap.Int("done", done), zap.Int("total", total))
}

// writeExports writes the CSV and workbook outputs requested by flags.
func writeExports(records []model.ProductRecord) error {
	if searchFlags.csvPath != "" {
		delim, err := export.DelimiterFrom(cfg.Export.CSVDelimiter)
		if err != nil {
			return err
		}
		f, err := os.Create(searchFlags.csvPath)
		if err != nil {
			return eris.Wrap(err, "search: create CSV file")
		}
		if err := export.WriteCSV(f, records, export.Options{Delimiter: delim}); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "search: close CSV file")
		}
		zap.L().Info("wrote CSV", zap.String("path", searchFlags.csvPath), zap.Int("records", len(records)))
	}

	if searchFlags.xlsxPath != "" {
		sheet := searchFlags.sheet
		if sheet == "" {
			sheet = cfg.Export.Sheet
		}
		startRow := searchFlags.startRow
		if startRow == 0 {
			startRow = cfg.Export.StartRow
		}
		if err := export.WriteSheet(searchFlags.xlsxPath, sheet, startRow, records); err != nil {
			return err
		}
		zap.L().Info("wrote workbook",
			zap.String("path", searchFlags.xlsxPath),
			zap.String("sheet", sheet),
			zap.Int("start_row", startRow),
			zap.Int("records", len(records)),
		)
	}
	return nil
}

// writeSearchResult prints the records as a table, or the whole result as
// indented JSON.
func writeSearchResult(w io.Writer, res *pipeline.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return export.WriteTable(w, res.Records)
}

func printSummary(w io.Writer, res *pipeline.Result) {
	s := res.Summary
	_, _ = fmt.Fprintf(w, "%d records from %d links (%d dispatched, %d failed) in %dms\n",
		s.Records, s.LinksFound, s.Dispatched, len(s.FailedURLs), s.DurationMs)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "run id: %s\n", res.RunID)
	}
	for _, u := range s.FailedURLs {
		_, _ = fmt.Fprintf(w, "  failed: %s\n", u)
	}
}
