// Package pipeline runs one search: it loads the results page, extracts
// product links, fetches the product pages concurrently and turns each
// fetched page into a record.
package pipeline

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/product-scraper/internal/extract"
	"github.com/sells-group/product-scraper/internal/fetcher"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/record"
	"github.com/sells-group/product-scraper/internal/scrape"
	"github.com/sells-group/product-scraper/internal/site"
	"github.com/sells-group/product-scraper/internal/store"
)

// ErrNoResults marks a search page that loaded but did not match the site's
// results structure.
var ErrNoResults = eris.New("search page has no results structure")

// Options tunes one Pipeline.
type Options struct {
	FetchConcurrency int                   // 0 uses fetcher.DefaultConcurrency
	ParseConcurrency int                   // 0 uses GOMAXPROCS
	Progress         func(done, total int) // optional, called per completed fetch
}

// Result is the outcome of a completed run.
type Result struct {
	RunID   string                `json:"run_id,omitempty"`
	Status  model.RunStatus       `json:"status"`
	Records []model.ProductRecord `json:"records"`
	Summary model.RunResult       `json:"summary"`
}

// Pipeline orchestrates search, link extraction, fetching and extraction.
type Pipeline struct {
	getter     fetcher.Getter
	profiles   map[model.Site]*site.Profile
	extractors extract.Registry
	store      store.Store
	opts       Options
}

// New creates a Pipeline. st may be nil, in which case nothing is persisted.
func New(getter fetcher.Getter, profiles map[model.Site]*site.Profile, extractors extract.Registry, st store.Store, opts Options) *Pipeline {
	return &Pipeline{
		getter:     getter,
		profiles:   profiles,
		extractors: extractors,
		store:      st,
		opts:       opts,
	}
}

// run carries the state of one Run call.
type run struct {
	p       *Pipeline
	id      string
	req     model.SearchRequest
	state   model.RunStatus
	summary model.RunResult
	start   time.Time
	log     *zap.Logger
}

// Run executes one search. A fatal error is returned only while loading the
// search page; failures of individual product pages are logged, listed in the
// summary and left out of the records.
func (p *Pipeline) Run(ctx context.Context, req model.SearchRequest) (*Result, error) {
	profile, ok := p.profiles[req.Site]
	if !ok || profile == nil {
		return nil, eris.Errorf("pipeline: no profile for site %q", req.Site)
	}
	extractor, err := p.extractors.Lookup(req.Site)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline")
	}
	req.Term = strings.TrimSpace(req.Term)
	if req.Term == "" {
		return nil, eris.New("pipeline: empty search term")
	}
	if req.Page < 1 {
		req.Page = 1
	}

	r := &run{
		p:     p,
		req:   req,
		state: model.RunStatusQueued,
		start: time.Now(),
		log:   zap.L().With(zap.String("site", string(req.Site)), zap.String("term", req.Term)),
	}
	if p.store != nil {
		stored, err := p.store.CreateRun(ctx, req)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		r.id = stored.ID
		r.log = r.log.With(zap.String("run_id", r.id))
	}
	r.log.Info("pipeline: starting run", zap.Int("page", req.Page), zap.Int("max_products", req.MaxProducts))

	links, err := r.searchLinks(ctx, profile)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.transition(ctx, model.RunStatusLinksExtracted)

	dispatched := capLinks(links, req.MaxProducts)
	r.summary.Dispatched = len(dispatched)
	r.transition(ctx, model.RunStatusFetching)

	var progress *fetcher.Progress
	if p.opts.Progress != nil {
		progress = fetcher.NewProgress(p.opts.Progress)
	}
	pages := fetcher.FetchAll(ctx, p.getter, dispatched, fetcher.Options{
		Concurrency: p.opts.FetchConcurrency,
		Header:      req.Headers,
		Progress:    progress,
	})

	r.transition(ctx, model.RunStatusExtracting)
	records := r.extractAll(ctx, extractor, dispatched, pages)

	return r.done(ctx, records), nil
}

// searchLinks loads the search results page and extracts product links.
func (r *run) searchLinks(ctx context.Context, profile *site.Profile) ([]string, error) {
	searchURL := profile.SearchURL(r.req.Term, r.req.Page)
	r.summary.SearchURL = searchURL

	page := fetcher.Fetch(ctx, r.p.getter, searchURL, r.req.Headers)
	if page.Err != nil {
		return nil, eris.Wrap(page.Err, "pipeline: search page")
	}
	doc, err := scrape.ParseDocument(page.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: search page %s", searchURL)
	}
	if !scrape.HasResults(doc, profile) {
		return nil, eris.Wrapf(ErrNoResults, "pipeline: search page %s (status %d)", searchURL, page.StatusCode)
	}

	links := scrape.ExtractLinks(doc, profile)
	r.summary.LinksFound = len(links)
	r.log.Info("pipeline: links extracted", zap.String("search_url", searchURL), zap.Int("links", len(links)))
	return links, nil
}

// capLinks keeps the first limit links. limit <= 0 means no cap.
func capLinks(links []string, limit int) []string {
	if limit > 0 && len(links) > limit {
		return links[:limit]
	}
	return links
}

// extractAll turns successful fetches into records in link order. Parsing
// runs on its own pool, sized for CPU rather than network concurrency.
func (r *run) extractAll(ctx context.Context, extractor extract.Extractor, links []string, pages map[string]model.FetchResult) []model.ProductRecord {
	workers := r.p.opts.ParseConcurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]*model.ProductRecord, len(links))
	parseFailed := make([]bool, len(links))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, u := range links {
		page, ok := pages[u]
		if !ok || !page.OK() {
			r.dropped(u, page.Err)
			continue
		}
		r.summary.Fetched++
		g.Go(func() error {
			doc, err := scrape.ParseDocument(page.Body)
			if err != nil {
				parseFailed[i] = true
				return nil
			}
			rec := record.Build(u, extractor.Site(), r.req.Term, extractor.Extract(doc))
			slots[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	records := make([]model.ProductRecord, 0, len(links))
	for i, rec := range slots {
		if parseFailed[i] {
			r.dropped(links[i], eris.New("unparseable page"))
			continue
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	if err := ctx.Err(); err != nil {
		r.log.Warn("pipeline: context ended during run, returning partial records", zap.Error(err))
	}
	return records
}

// dropped logs and lists a product page that yields no record.
func (r *run) dropped(url string, err error) {
	if err == nil {
		err = eris.New("no fetch result")
	}
	r.summary.FailedURLs = append(r.summary.FailedURLs, url)
	r.log.Warn("pipeline: dropping product page",
		zap.String("url", url),
		zap.Bool("transient", fetcher.IsTransient(err)),
		zap.Error(err),
	)
}

// transition moves the run forward and mirrors the status to the store.
func (r *run) transition(ctx context.Context, to model.RunStatus) {
	r.log.Info("pipeline: state change", zap.String("from", string(r.state)), zap.String("to", string(to)))
	r.state = to
	if r.p.store == nil || r.id == "" {
		return
	}
	if err := r.p.store.UpdateRunStatus(ctx, r.id, to); err != nil {
		r.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

// fail ends the run in the failed state and returns err for the caller.
func (r *run) fail(ctx context.Context, err error) error {
	r.log.Error("pipeline: run failed", zap.String("state", string(r.state)), zap.Error(err))
	r.state = model.RunStatusFailed
	r.summary.Error = err.Error()
	r.summary.DurationMs = time.Since(r.start).Milliseconds()
	if r.p.store != nil && r.id != "" {
		if storeErr := r.p.store.FailRun(context.WithoutCancel(ctx), r.id, &r.summary); storeErr != nil {
			r.log.Warn("pipeline: failed to record failure", zap.Error(storeErr))
		}
	}
	return err
}

// done finishes the run and persists its records.
func (r *run) done(ctx context.Context, records []model.ProductRecord) *Result {
	r.state = model.RunStatusComplete
	r.summary.Records = len(records)
	r.summary.DurationMs = time.Since(r.start).Milliseconds()

	if r.p.store != nil && r.id != "" {
		persist := context.WithoutCancel(ctx)
		if err := r.p.store.SaveRecords(persist, r.id, records); err != nil {
			r.log.Warn("pipeline: failed to save records", zap.Error(err))
		}
		if err := r.p.store.CompleteRun(persist, r.id, &r.summary); err != nil {
			r.log.Warn("pipeline: failed to complete run", zap.Error(err))
		}
	}

	r.log.Info("pipeline: run complete",
		zap.Int("links", r.summary.LinksFound),
		zap.Int("dispatched", r.summary.Dispatched),
		zap.Int("fetched", r.summary.Fetched),
		zap.Int("records", r.summary.Records),
		zap.Int("failed", len(r.summary.FailedURLs)),
		zap.Int64("duration_ms", r.summary.DurationMs),
	)
	return &Result{
		RunID:   r.id,
		Status:  r.state,
		Records: records,
		Summary: r.summary,
	}
}
