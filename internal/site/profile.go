// Package site holds the per-site markup contract used to discover product
// links: where the search page lives and which anchors count as products.
package site

import (
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/product-scraper/internal/model"
)

// Profile describes how one retail site lays out its search results.
type Profile struct {
	Site model.Site `yaml:"-"`

	BaseURL     string            `yaml:"base_url"`
	SearchPath  string            `yaml:"search_path"`
	TermParam   string            `yaml:"term_param"`
	PageParam   string            `yaml:"page_param"`
	ExtraParams map[string]string `yaml:"extra_params"`

	// ResultsSelector must match on a healthy search page. A page without
	// it is treated as unparseable.
	ResultsSelector string `yaml:"results_selector"`
	LinkSelector    string `yaml:"link_selector"`

	RejectPaths      []string `yaml:"reject_paths"` // glob patterns, e.g. "/s/*"
	SponsoredMarkers []string `yaml:"sponsored_markers"`
	RefDelimiter     string   `yaml:"ref_delimiter"`
	ProductPath      string   `yaml:"product_path"` // regexp a product path must match

	// RankCategory is the category name scanned for a "#N in ..." rank.
	RankCategory string `yaml:"rank_category"`

	productRe *regexp.Regexp
}

// Defaults returns the built-in profiles for every supported site.
func Defaults() map[model.Site]*Profile {
	profiles := map[model.Site]*Profile{
		model.SiteAmazon: {
			Site:       model.SiteAmazon,
			BaseURL:    "https://www.amazon.com",
			SearchPath: "/s",
			TermParam:  "k",
			PageParam:  "page",
			ExtraParams: map[string]string{
				"i":    "hpc",
				"crid": "31LYPP9IF70TO",
			},
			ResultsSelector:  "div.s-main-slot, div.s-search-results, span[data-component-type='s-search-results']",
			LinkSelector:     "a.a-link-normal.s-no-outline",
			RejectPaths:      []string{"/s", "/s/*", "/b/*", "/stores/*"},
			SponsoredMarkers: []string{"gp/slredirect", "/sspa/click"},
			RefDelimiter:     "/ref=",
			ProductPath:      `(^|/)(dp|gp/product)/[A-Z0-9]{10}`,
			RankCategory:     "Health & Household",
		},
		model.SiteIHerb: {
			Site:             model.SiteIHerb,
			BaseURL:          "https://www.iherb.com",
			SearchPath:       "/search",
			TermParam:        "kw",
			PageParam:        "p",
			ResultsSelector:  "div.products, div.product-cell-container",
			LinkSelector:     "a.absolute-link.product-link",
			RejectPaths:      []string{"/search", "/search/*", "/c/*"},
			SponsoredMarkers: []string{"/sponsored/"},
			RefDelimiter:     "?rcode=",
			ProductPath:      `^/pr/[^/]+/\d+$`,
			RankCategory:     "Supplements",
		},
	}
	for _, p := range profiles {
		if err := p.Compile(); err != nil {
			panic(err)
		}
	}
	return profiles
}

// LoadProfiles returns the built-in profiles with overrides from a YAML file
// applied on top. An empty path returns the defaults unchanged.
//
// The file has a top-level "sites" key holding one entry per site name; only
// the keys present in an entry replace the built-in values.
func LoadProfiles(path string) (map[model.Site]*Profile, error) {
	profiles := Defaults()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "site: read profiles %s", path)
	}

	var wrapper struct {
		Sites map[string]yaml.Node `yaml:"sites"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "site: parse profiles")
	}

	for name, node := range wrapper.Sites {
		s, err := model.ParseSite(name)
		if err != nil {
			return nil, eris.Wrapf(err, "site: profile %q", name)
		}
		p := profiles[s]
		// Decoding into the existing value keeps any key the file omits.
		if err := node.Decode(p); err != nil {
			return nil, eris.Wrapf(err, "site: decode profile %q", name)
		}
		p.Site = s
	}

	return compileAll(profiles)
}

func compileAll(profiles map[model.Site]*Profile) (map[model.Site]*Profile, error) {
	for s, p := range profiles {
		if err := p.Compile(); err != nil {
			return nil, eris.Wrapf(err, "site: profile %s", s)
		}
	}
	return profiles, nil
}

// Compile validates the profile and prepares its product path pattern.
func (p *Profile) Compile() error {
	if p.BaseURL == "" {
		return eris.New("base_url is required")
	}
	if p.LinkSelector == "" {
		return eris.New("link_selector is required")
	}
	if p.ProductPath == "" {
		p.productRe = nil
		return nil
	}
	re, err := regexp.Compile(p.ProductPath)
	if err != nil {
		return eris.Wrapf(err, "compile product_path %q", p.ProductPath)
	}
	p.productRe = re
	return nil
}

// Host returns the host of the profile's base URL.
func (p *Profile) Host() string {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// IsProductPath reports whether a URL path looks like a product page.
// A profile without a product pattern accepts every path.
func (p *Profile) IsProductPath(urlPath string) bool {
	if p.productRe != nil {
		return p.productRe.MatchString(urlPath)
	}
	if p.ProductPath == "" {
		return true
	}
	ok, err := regexp.MatchString(p.ProductPath, urlPath)
	return err == nil && ok
}

// SearchURL builds the search results URL for a term and 1-based page.
func (p *Profile) SearchURL(term string, page int) string {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set(p.TermParam, strings.TrimSpace(term))
	if p.PageParam != "" {
		q.Set(p.PageParam, strconv.Itoa(page))
	}
	for k, v := range p.ExtraParams {
		q.Set(k, v)
	}
	return strings.TrimRight(p.BaseURL, "/") + p.SearchPath + "?" + q.Encode()
}
