// Package scrape discovers product links on search result pages and
// recognises pages that were served to a bot instead of a shopper.
package scrape

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/product-scraper/internal/site"
)

// ParseDocument parses raw HTML into a queryable document.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse document")
	}
	return doc, nil
}

// HasResults reports whether the search page carries the site's results
// container. A profile without a results selector accepts any page.
func HasResults(doc *goquery.Document, p *site.Profile) bool {
	if doc == nil {
		return false
	}
	if p.ResultsSelector == "" {
		return true
	}
	return doc.Find(p.ResultsSelector).Length() > 0
}

// ExtractLinks returns the product page URLs found on a search results
// document, in first-seen order and without duplicates. Anchors that point
// at sponsored redirects, other hosts, rejected paths, or non-product paths
// are dropped.
func ExtractLinks(doc *goquery.Document, p *site.Profile) []string {
	if doc == nil {
		return nil
	}
	base, err := url.Parse(p.BaseURL)
	if err != nil || base.Host == "" {
		zap.L().Warn("scrape: invalid base url", zap.String("base_url", p.BaseURL))
		return nil
	}
	matcher := NewPathMatcher(p.RejectPaths)

	var (
		links   []string
		seen    = make(map[string]struct{})
		anchors = doc.Find(p.LinkSelector)
	)
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link, ok := normalizeLink(strings.TrimSpace(href), base, p, matcher)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	zap.L().Debug("scrape: extracted links",
		zap.String("site", string(p.Site)),
		zap.Int("anchors", anchors.Length()),
		zap.Int("links", len(links)),
	)
	return links
}

// normalizeLink turns one href into an absolute product URL, or reports
// false when the href must be dropped.
func normalizeLink(href string, base *url.URL, p *site.Profile, matcher *PathMatcher) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	for _, m := range p.SponsoredMarkers {
		if m != "" && strings.Contains(href, m) {
			return "", false
		}
	}

	if p.RefDelimiter != "" {
		if i := strings.LastIndex(href, p.RefDelimiter); i > 0 {
			href = href[:i]
		}
	}

	// Same-host links sometimes arrive without a scheme.
	switch {
	case strings.HasPrefix(strings.ToLower(href), strings.ToLower(base.Host)):
		href = base.Scheme + "://" + href
	case strings.HasPrefix(href, "//"):
		href = base.Scheme + ":" + href
	case !strings.Contains(href, "://") && !strings.HasPrefix(href, "/"):
		href = "/" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.IsAbs() && !strings.EqualFold(u.Host, base.Host) {
		return "", false
	}
	if matcher.IsPathExcluded(u.Path) || !p.IsProductPath(u.Path) {
		return "", false
	}

	if u.IsAbs() {
		return href, true
	}
	return strings.TrimRight(p.BaseURL, "/") + href, true
}
