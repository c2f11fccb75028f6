package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/product-scraper/internal/export"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/monitoring"
	"github.com/sells-group/product-scraper/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted scrape runs",
	Long:  "Commands for listing, viewing, and summarizing runs saved with search --persist or the HTTP API.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scrape runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		siteName, _ := cmd.Flags().GetString("site")
		term, _ := cmd.Flags().GetString("term")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.RunFilter{
			Status: model.RunStatus(status),
			Term:   term,
			Limit:  limit,
			Offset: offset,
		}
		if siteName != "" {
			s, err := model.ParseSite(siteName)
			if err != nil {
				return err
			}
			filter.Site = s
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		records, err := st.ListRecords(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeRun(cmd.OutOrStdout(), run, records, format)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetDuration("since")
		snap, err := monitoring.NewCollector(st).Collect(ctx, int(since.Hours()))
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, fetching, complete, failed, ...)")
	runsListCmd.Flags().String("site", "", "filter by site (amazon, iherb)")
	runsListCmd.Flags().String("term", "", "filter by search term")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats, 0 for all runs (e.g. 24h, 168h)")

	runsShowCmd.Flags().String("format", "table", "record output format (table, json, csv)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// writeRun prints one run with its records in the requested format.
func writeRun(w io.Writer, run *model.Run, records []model.ProductRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*model.Run
			Records []model.ProductRecord `json:"records"`
		}{run, records})
	case "csv":
		delim, err := export.DelimiterFrom(cfg.Export.CSVDelimiter)
		if err != nil {
			return err
		}
		return export.WriteCSV(w, records, export.Options{Delimiter: delim})
	case "table", "":
		_, _ = fmt.Fprintf(w, "Run %s  %s %q  %s  %d records\n\n",
			run.ID, run.Request.Site.DisplayName(), run.Request.Term, run.Status, len(records))
		return export.WriteTable(w, records)
	default:
		return eris.Errorf("runs show: unsupported format %q", format)
	}
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSITE\tTERM\tSTATUS\tRECORDS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		records := "-"
		if r.Result != nil {
			records = fmt.Sprintf("%d/%d", r.Result.Records, r.Result.Dispatched)
		}

		term := r.Request.Term
		if len(term) > 30 {
			term = term[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Request.Site,
			term,
			r.Status,
			records,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.RunsTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.RunsComplete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.RunsFailed)
	_, _ = fmt.Fprintf(w, "In progress:\t%d\n", s.RunsInProgress)
	for _, site := range model.AllSites() {
		if n := s.BySite[site]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", site.DisplayName(), n)
		}
	}
	_, _ = fmt.Fprintf(w, "Records:\t%d of %d pages (%.1f%%)\n", s.Records, s.Dispatched, s.PageSuccessRate*100)
	_, _ = fmt.Fprintf(w, "Failed URLs:\t%d\n", s.FailedURLs)
	if s.AvgDurationMs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", float64(s.AvgDurationMs)/1000)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
