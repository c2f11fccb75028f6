package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/product-scraper/internal/fetcher"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/monitoring"
	"github.com/sells-group/product-scraper/internal/pipeline"
	"github.com/sells-group/product-scraper/internal/store"
)

var (
	servePort    int
	servePersist bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for search runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScrapeEnv(ctx, "serve", servePersist)
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{
			search: func(ctx context.Context, req model.SearchRequest) (*pipeline.Result, error) {
				return env.runSearch(ctx, req, nil)
			},
			store:   env.Store,
			timeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		}

		return startServer(ctx, api.router(cfg.Server.AllowedOrigins), resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&servePersist, "persist", true, "save runs to the store and serve run history")
	rootCmd.AddCommand(serveCmd)
}

// searchFunc runs one search synchronously.
type searchFunc func(ctx context.Context, req model.SearchRequest) (*pipeline.Result, error)

// apiServer serves search runs and run history over HTTP.
type apiServer struct {
	search  searchFunc
	store   store.Store // nil disables the /runs endpoints
	timeout time.Duration
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Site        string            `json:"site"`
	Term        string            `json:"term"`
	Page        int               `json:"page"`
	MaxProducts int               `json:"max_products"`
	Headers     map[string]string `json:"headers"`
}

func (a *apiServer) router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/search", a.handleSearch)
	r.Get("/metrics", a.handleMetrics)
	r.Get("/runs", a.handleListRuns)
	r.Get("/runs/{id}", a.handleGetRun)
	r.Get("/runs/{id}/records", a.handleListRecords)
	return r
}

func (a *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := model.ParseSite(body.Site)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Term) == "" {
		writeError(w, http.StatusBadRequest, "term is required")
		return
	}
	if body.MaxProducts < 0 {
		writeError(w, http.StatusBadRequest, "max_products must be >= 0")
		return
	}

	ctx := r.Context()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	res, err := a.search(ctx, model.SearchRequest{
		Site:        s,
		Term:        body.Term,
		Page:        body.Page,
		MaxProducts: body.MaxProducts,
		Headers:     body.Headers,
	})
	if err != nil {
		zap.L().Error("search run failed",
			zap.String("site", string(s)),
			zap.String("term", body.Term),
			zap.Error(err),
		)
		writeError(w, searchErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// searchErrorStatus maps a fatal run error to a response status. Failures of
// the upstream search page are reported as a bad gateway.
func searchErrorStatus(err error) int {
	var fe *fetcher.FetchError
	switch {
	case errors.As(err, &fe), errors.Is(err, pipeline.ErrNoResults):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (a *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	lookback, err := intParam(r.URL.Query().Get("lookback_hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lookback_hours")
		return
	}
	if lookback == 0 {
		lookback = 24
	}
	snap, err := monitoring.NewCollector(a.store).Collect(r.Context(), lookback)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Term:   q.Get("term"),
	}
	if v := q.Get("site"); v != "" {
		s, err := model.ParseSite(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Site = s
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *apiServer) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := a.store.GetRun(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	records, err := a.store.ListRecords(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []model.ProductRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *apiServer) requireStore(w http.ResponseWriter) bool {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return false
	}
	return true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	zap.L().Error("store request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolvePort prefers the flag value and falls back to the config.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h on port until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}
