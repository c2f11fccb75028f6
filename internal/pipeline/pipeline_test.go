package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-scraper/internal/extract"
	"github.com/sells-group/product-scraper/internal/fetcher"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/site"
)

func TestPipeline_Run_PartialFailureKeepsLinkOrder(t *testing.T) {
	fs := newFakeSite(5)
	fs.pages[productURL(3)] = &fetcher.Response{StatusCode: http.StatusServiceUnavailable}

	p := newTestPipeline(t, fs, Options{FetchConcurrency: 3, ParseConcurrency: 2})
	res, err := p.Run(context.Background(), amazonRequest(10))
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, res.Status)
	require.Len(t, res.Records, 4)
	want := []string{productURL(1), productURL(2), productURL(4), productURL(5)}
	for i, rec := range res.Records {
		assert.Equal(t, want[i], rec.URL)
		assert.Equal(t, model.SiteAmazon, rec.Source)
		assert.Equal(t, "Neem", rec.Category)
	}
	assert.Equal(t, []string{productURL(3)}, res.Summary.FailedURLs)
	assert.Equal(t, 5, res.Summary.LinksFound)
	assert.Equal(t, 5, res.Summary.Dispatched)
	assert.Equal(t, 4, res.Summary.Fetched)
	assert.Equal(t, 4, res.Summary.Records)
	assert.Contains(t, res.Summary.SearchURL, "k=Neem")
	assert.Empty(t, res.RunID)
}

func TestPipeline_Run_RecordFields(t *testing.T) {
	fs := newFakeSite(1)
	p := newTestPipeline(t, fs, Options{})

	res, err := p.Run(context.Background(), amazonRequest(0))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, model.Some("Neem Capsules 1"), rec.Title)
	assert.Equal(t, model.Some("B000000001"), rec.ASIN)
	assert.Equal(t, model.Some("Acme Labs"), rec.Brand)
	assert.Equal(t, model.Some("$11.99"), rec.Price)
	assert.Equal(t, model.Some(1000), rec.Rank)
	assert.False(t, rec.Rating.Valid())
	assert.False(t, rec.Ingredients.Valid())
}

func TestPipeline_Run_TransportFailureDropsURL(t *testing.T) {
	fs := newFakeSite(3)
	fs.pageErrs[productURL(2)] = errConnReset

	p := newTestPipeline(t, fs, Options{})
	res, err := p.Run(context.Background(), amazonRequest(0))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, productURL(1), res.Records[0].URL)
	assert.Equal(t, productURL(3), res.Records[1].URL)
	assert.Equal(t, []string{productURL(2)}, res.Summary.FailedURLs)
}

func TestPipeline_Run_CapAppliedBeforeDispatch(t *testing.T) {
	fs := newFakeSite(5)
	p := newTestPipeline(t, fs, Options{})

	res, err := p.Run(context.Background(), amazonRequest(2))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Summary.LinksFound)
	assert.Equal(t, 2, res.Summary.Dispatched)
	assert.Equal(t, 2, fs.productCalls())
	require.Len(t, res.Records, 2)
	assert.Equal(t, productURL(1), res.Records[0].URL)
	assert.Equal(t, productURL(2), res.Records[1].URL)
}

func TestPipeline_Run_ZeroLinks(t *testing.T) {
	fs := newFakeSite(0)
	p := newTestPipeline(t, fs, Options{})

	res, err := p.Run(context.Background(), amazonRequest(0))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, res.Status)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, fs.productCalls())
}

func TestPipeline_Run_FatalSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(fs *fakeSite)
		target error
		status int
	}{
		{
			name:   "non-2xx",
			setup:  func(fs *fakeSite) { fs.search = &fetcher.Response{StatusCode: http.StatusServiceUnavailable} },
			target: fetcher.ErrStatus,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "transport error",
			setup:  func(fs *fakeSite) { fs.searchEr = errConnReset },
			target: errConnReset,
		},
		{
			name: "robot check",
			setup: func(fs *fakeSite) {
				fs.search = &fetcher.Response{StatusCode: http.StatusOK, Body: []byte(
					`<html><head><title>Robot Check</title></head><body>Enter the characters you see below</body></html>`)}
			},
			target: fetcher.ErrBlocked,
			status: http.StatusOK,
		},
		{
			name: "no results structure",
			setup: func(fs *fakeSite) {
				fs.search = &fetcher.Response{StatusCode: http.StatusOK, Body: []byte(
					`<html><body><div id="something-else"><p>We moved things around</p></div></body></html>`)}
			},
			target: ErrNoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeSite(3)
			tt.setup(fs)
			p := newTestPipeline(t, fs, Options{})

			res, err := p.Run(context.Background(), amazonRequest(0))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.target), err.Error())
			assert.Contains(t, err.Error(), "amazon.com/s?")
			assert.Equal(t, 0, fs.productCalls())

			if tt.status != 0 {
				var fe *fetcher.FetchError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.status, fe.StatusCode)
			}
		})
	}
}

func TestPipeline_Run_InvalidRequest(t *testing.T) {
	p := newTestPipeline(t, newFakeSite(1), Options{})

	_, err := p.Run(context.Background(), model.SearchRequest{Site: model.Site("ebay"), Term: "neem"})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), model.SearchRequest{Site: model.SiteAmazon, Term: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty search term")
}

func TestPipeline_Run_MissingExtractor(t *testing.T) {
	p := New(newFakeSite(1), site.Defaults(), extract.Registry{}, nil, Options{})
	_, err := p.Run(context.Background(), amazonRequest(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractor")
}

func TestPipeline_Run_HeadersAndProgress(t *testing.T) {
	fs := newFakeSite(4)
	var progressCalls atomic.Int32
	var lastTotal atomic.Int32
	p := newTestPipeline(t, fs, Options{Progress: func(_, total int) {
		progressCalls.Add(1)
		lastTotal.Store(int32(total))
	}})

	req := amazonRequest(0)
	req.Headers = map[string]string{"Cookie": "session=abc"}
	_, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(4), progressCalls.Load())
	assert.Equal(t, int32(4), lastTotal.Load())
	for _, h := range fs.headers {
		assert.Equal(t, "session=abc", h["Cookie"])
	}
}

func TestPipeline_Run_PageDefaultsToOne(t *testing.T) {
	fs := newFakeSite(1)
	p := newTestPipeline(t, fs, Options{})

	req := amazonRequest(0)
	req.Page = 0
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Summary.SearchURL, "page=1")
}

func TestPipeline_Run_PersistsTransitions(t *testing.T) {
	fs := newFakeSite(3)
	fs.pages[productURL(2)] = &fetcher.Response{StatusCode: http.StatusNotFound}

	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.MatchedBy(func(r model.SearchRequest) bool {
		return r.Term == "Neem" && r.Site == model.SiteAmazon
	})).Return(&model.Run{ID: "run-1", Status: model.RunStatusQueued}, nil)
	for _, s := range []model.RunStatus{
		model.RunStatusLinksExtracted,
		model.RunStatusFetching,
		model.RunStatusExtracting,
	} {
		st.On("UpdateRunStatus", mock.Anything, "run-1", s).Return(nil).Once()
	}
	st.On("SaveRecords", mock.Anything, "run-1", mock.MatchedBy(func(recs []model.ProductRecord) bool {
		return len(recs) == 2 && recs[0].URL == productURL(1) && recs[1].URL == productURL(3)
	})).Return(nil)
	st.On("CompleteRun", mock.Anything, "run-1", mock.MatchedBy(func(r *model.RunResult) bool {
		return r.Records == 2 && len(r.FailedURLs) == 1
	})).Return(nil)

	profiles := site.Defaults()
	p := New(fs, profiles, extract.NewRegistry(profiles), st, Options{})
	res, err := p.Run(context.Background(), amazonRequest(0))
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	st.AssertExpectations(t)
}

func TestPipeline_Run_PersistsFailure(t *testing.T) {
	fs := newFakeSite(3)
	fs.search = &fetcher.Response{StatusCode: http.StatusForbidden}

	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.Anything).Return(&model.Run{ID: "run-2"}, nil)
	st.On("FailRun", mock.Anything, "run-2", mock.MatchedBy(func(r *model.RunResult) bool {
		return r.Error != "" && r.SearchURL != ""
	})).Return(nil)

	profiles := site.Defaults()
	p := New(fs, profiles, extract.NewRegistry(profiles), st, Options{})
	_, err := p.Run(context.Background(), amazonRequest(0))
	require.Error(t, err)
	st.AssertExpectations(t)
	st.AssertNotCalled(t, "UpdateRunStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Run_StoreErrorsAreNotFatalAfterSearch(t *testing.T) {
	fs := newFakeSite(2)

	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.Anything).Return(&model.Run{ID: "run-3"}, nil)
	st.On("UpdateRunStatus", mock.Anything, "run-3", mock.Anything).Return(errors.New("db down"))
	st.On("SaveRecords", mock.Anything, "run-3", mock.Anything).Return(errors.New("db down"))
	st.On("CompleteRun", mock.Anything, "run-3", mock.Anything).Return(errors.New("db down"))

	profiles := site.Defaults()
	p := New(fs, profiles, extract.NewRegistry(profiles), st, Options{})
	res, err := p.Run(context.Background(), amazonRequest(0))
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestPipeline_Run_CreateRunError(t *testing.T) {
	st := &mockStore{}
	st.On("CreateRun", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	profiles := site.Defaults()
	p := New(newFakeSite(1), profiles, extract.NewRegistry(profiles), st, Options{})
	_, err := p.Run(context.Background(), amazonRequest(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create run")
}

func TestPipeline_Run_CancelledAfterSearch(t *testing.T) {
	fs := newFakeSite(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	getter := fetcher.GetterFunc(func(c context.Context, url string, h map[string]string) (*fetcher.Response, error) {
		resp, err := fs.Get(c, url, h)
		if strings.HasPrefix(url, amazonBase+"/s?") {
			cancel()
		}
		return resp, err
	})

	p := newTestPipeline(t, getter, Options{FetchConcurrency: 1})
	res, err := p.Run(ctx, amazonRequest(0))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, res.Status)
	assert.Empty(t, res.Records)
	assert.Len(t, res.Summary.FailedURLs, 3)
}

func TestCapLinks(t *testing.T) {
	links := []string{"a", "b", "c"}
	assert.Equal(t, links, capLinks(links, 0))
	assert.Equal(t, links, capLinks(links, 10))
	assert.Equal(t, []string{"a", "b"}, capLinks(links, 2))
}
