package extract

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/site"
)

// Registry selects the extractor for a site.
type Registry map[model.Site]Extractor

// NewRegistry builds extractors for every supported site, taking the rank
// category from each site's profile when one is present.
func NewRegistry(profiles map[model.Site]*site.Profile) Registry {
	category := func(s model.Site) string {
		if p, ok := profiles[s]; ok && p != nil {
			return p.RankCategory
		}
		return ""
	}
	return Registry{
		model.SiteAmazon: Amazon(category(model.SiteAmazon)),
		model.SiteIHerb:  IHerb(category(model.SiteIHerb)),
	}
}

// Lookup returns the extractor for s.
func (r Registry) Lookup(s model.Site) (Extractor, error) {
	e, ok := r[s]
	if !ok {
		return nil, eris.Errorf("extract: no extractor for site %q", s)
	}
	return e, nil
}
