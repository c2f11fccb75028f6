package fetcher

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/scrape"
)

// maxDefaultConcurrency caps the default worker count.
const maxDefaultConcurrency = 32

// DefaultConcurrency is the fetch worker count used when none is configured.
func DefaultConcurrency() int {
	return min(maxDefaultConcurrency, runtime.NumCPU()+4)
}

// Options configures FetchAll.
type Options struct {
	Concurrency int
	Header      map[string]string // merged into every request
	Progress    *Progress         // optional
}

// Progress counts completed fetches. The count only ever increases.
type Progress struct {
	done     atomic.Int64
	total    atomic.Int64
	onUpdate func(done, total int)
}

// NewProgress creates a Progress that calls fn after each completed fetch.
// fn may be nil and must be safe for concurrent use.
func NewProgress(fn func(done, total int)) *Progress {
	return &Progress{onUpdate: fn}
}

// Done returns the number of completed fetches.
func (p *Progress) Done() int {
	return int(p.done.Load())
}

// Total returns the number of dispatched fetches.
func (p *Progress) Total() int {
	return int(p.total.Load())
}

func (p *Progress) start(n int) {
	p.total.Add(int64(n))
}

func (p *Progress) inc() {
	done := p.done.Add(1)
	if p.onUpdate != nil {
		p.onUpdate(int(done), int(p.total.Load()))
	}
}

// FetchAll retrieves every URL with at most opts.Concurrency requests in
// flight and returns one result per URL. A failing URL never cancels the
// others. When ctx is cancelled, URLs not yet fetched come back as errors.
func FetchAll(ctx context.Context, getter Getter, urls []string, opts Options) map[string]model.FetchResult {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	progress := opts.Progress
	if progress == nil {
		progress = NewProgress(nil)
	}
	progress.start(len(urls))

	// Each worker owns one slot, so no lock is needed.
	results := make([]model.FetchResult, len(urls))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = fetchOne(ctx, getter, u, opts.Header)
			progress.inc()
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]model.FetchResult, len(urls))
	var failed, transient int
	for _, r := range results {
		out[r.URL] = r
		if r.Err != nil {
			failed++
			if IsTransient(r.Err) {
				transient++
			}
		}
	}

	zap.L().Info("fetcher: fetch complete",
		zap.Int("urls", len(urls)),
		zap.Int("ok", len(urls)-failed),
		zap.Int("failed", failed),
		zap.Int("transient", transient),
		zap.Int("concurrency", concurrency),
	)
	return out
}

// Fetch retrieves one URL and classifies the outcome the same way FetchAll
// does: non-2xx and blocked pages are errors.
func Fetch(ctx context.Context, getter Getter, url string, header map[string]string) model.FetchResult {
	return fetchOne(ctx, getter, url, header)
}

func fetchOne(ctx context.Context, getter Getter, url string, header map[string]string) model.FetchResult {
	if err := ctx.Err(); err != nil {
		return model.FetchResult{URL: url, Err: &FetchError{URL: url, Err: eris.Wrap(err, "not started")}}
	}

	resp, err := getter.Get(ctx, url, header)
	if err != nil {
		return model.FetchResult{URL: url, Err: &FetchError{URL: url, Err: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.FetchResult{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrStatus},
		}
	}

	if blocked, kind := scrape.DetectBlock(resp.StatusCode, resp.Header, resp.Body); blocked {
		return model.FetchResult{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        &FetchError{URL: url, StatusCode: resp.StatusCode, Err: eris.Wrapf(ErrBlocked, "%s", kind)},
		}
	}

	return model.FetchResult{URL: url, StatusCode: resp.StatusCode, Body: resp.Body}
}
