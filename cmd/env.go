package main

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/product-scraper/internal/extract"
	"github.com/sells-group/product-scraper/internal/fetcher"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/pipeline"
	"github.com/sells-group/product-scraper/internal/site"
	"github.com/sells-group/product-scraper/internal/store"
)

// scrapeEnv holds the profiles, extractors and optional store shared by the
// search and serve commands.
type scrapeEnv struct {
	Store      store.Store // nil when runs are not persisted
	Profiles   map[model.Site]*site.Profile
	Extractors extract.Registry
}

// Close releases resources held by the environment.
func (e *scrapeEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initScrapeEnv validates the config for mode, loads site profiles and, when
// persist is set, opens and migrates the store. Callers should defer Close.
func initScrapeEnv(ctx context.Context, mode string, persist bool) (*scrapeEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	profiles, err := site.LoadProfiles(cfg.SitesFile)
	if err != nil {
		return nil, err
	}
	env := &scrapeEnv{
		Profiles:   profiles,
		Extractors: extract.NewRegistry(profiles),
	}

	if !persist {
		return env, nil
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	env.Store = st
	return env, nil
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "product-scraper.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("postgres store requires store.database_url (SCRAPER_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newSession builds the HTTP session for one run. Every run gets its own
// cookie jar and limiter.
func newSession() (*fetcher.HTTPClient, error) {
	return fetcher.NewHTTPClient(fetcher.HTTPOptions{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout(),
		Proxy:        cfg.Fetch.Proxy,
		Headers:      cfg.Fetch.Headers,
		RateLimit:    rate.Limit(cfg.Fetch.RateLimit),
		Burst:        cfg.Fetch.Burst,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		MaxConns:     cfg.Fetch.Concurrency,
	})
}

// pipeline builds a Pipeline over getter using the configured pool sizes.
func (e *scrapeEnv) pipeline(getter fetcher.Getter, progress func(done, total int)) *pipeline.Pipeline {
	return pipeline.New(getter, e.Profiles, e.Extractors, e.Store, pipeline.Options{
		FetchConcurrency: cfg.Fetch.Concurrency,
		ParseConcurrency: cfg.Parse.Concurrency,
		Progress:         progress,
	})
}

// runSearch executes one run on a fresh session.
func (e *scrapeEnv) runSearch(ctx context.Context, req model.SearchRequest, progress func(done, total int)) (*pipeline.Result, error) {
	session, err := newSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return e.pipeline(session, progress).Run(ctx, req)
}
