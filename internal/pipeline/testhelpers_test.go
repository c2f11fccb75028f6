package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/sells-group/product-scraper/internal/extract"
	"github.com/sells-group/product-scraper/internal/fetcher"
	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/site"
)

const amazonBase = "https://www.amazon.com"

func productURL(i int) string {
	return fmt.Sprintf("%s/Neem-%d/dp/B00000000%d", amazonBase, i, i)
}

// searchPage renders an Amazon results page linking to products 1..n,
// with every link repeated once to exercise dedup.
func searchPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="s-main-slot">`)
	for i := 1; i <= n; i++ {
		href := fmt.Sprintf("/Neem-%d/dp/B00000000%d/ref=sr_1_%d", i, i, i)
		fmt.Fprintf(&b, `<div><a class="a-link-normal s-no-outline" href="%s">img</a>`, href)
		fmt.Fprintf(&b, `<a class="a-link-normal s-no-outline" href="%s">title</a></div>`, href)
	}
	b.WriteString(`<a class="a-link-normal s-no-outline" href="/gp/slredirect/picassoRedirect.html?url=x">ad</a>`)
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func productPage(i int) string {
	return fmt.Sprintf(`<html><body>
<span id="productTitle">  Neem Capsules %d  </span>
<div id="detailBullets_feature_div"><ul>
<li><span><span>ASIN :</span><span>B00000000%d</span></span></li>
<li><span><span>Manufacturer :</span><span>Acme Labs</span></span></li>
</ul></div>
<span class="a-price aok-align-center"><span class="a-offscreen">$1%d.99</span></span>
<div>#%d,000 in Health &amp; Household (See Top 100)</div>
</body></html>`, i, i, i, i)
}

// fakeSite serves a search page and product pages from memory.
type fakeSite struct {
	mu       sync.Mutex
	search   *fetcher.Response
	searchEr error
	pages    map[string]*fetcher.Response
	pageErrs map[string]error
	calls    []string
	headers  []map[string]string
}

func newFakeSite(products int) *fakeSite {
	f := &fakeSite{
		search:   &fetcher.Response{StatusCode: http.StatusOK, Body: []byte(searchPage(products))},
		pages:    map[string]*fetcher.Response{},
		pageErrs: map[string]error{},
	}
	for i := 1; i <= products; i++ {
		f.pages[productURL(i)] = &fetcher.Response{StatusCode: http.StatusOK, Body: []byte(productPage(i))}
	}
	return f
}

func (f *fakeSite) Get(_ context.Context, url string, header map[string]string) (*fetcher.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.headers = append(f.headers, header)
	f.mu.Unlock()

	if strings.HasPrefix(url, amazonBase+"/s?") {
		if f.searchEr != nil {
			return nil, f.searchEr
		}
		return f.search, nil
	}
	if err, ok := f.pageErrs[url]; ok {
		return nil, err
	}
	if resp, ok := f.pages[url]; ok {
		return resp, nil
	}
	return &fetcher.Response{StatusCode: http.StatusNotFound}, nil
}

func (f *fakeSite) productCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if !strings.HasPrefix(c, amazonBase+"/s?") {
			n++
		}
	}
	return n
}

var errConnReset = errors.New("connection reset by peer")

func newTestPipeline(t *testing.T, getter fetcher.Getter, opts Options) *Pipeline {
	t.Helper()
	profiles := site.Defaults()
	return New(getter, profiles, extract.NewRegistry(profiles), nil, opts)
}

func amazonRequest(maxProducts int) model.SearchRequest {
	return model.SearchRequest{Site: model.SiteAmazon, Term: "Neem", Page: 1, MaxProducts: maxProducts}
}
